package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const testDao = "SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.arkadiko-dao"

type fakeService struct {
	treasury   *entity.DaoTreasury
	details    *entity.ProposalDetails
	err        error
	statuses   []entity.APIStatus
	gotNetwork entity.Network
	gotAddress string
	registered []entity.KnownDao
}

func (f *fakeService) GetKnownDaos(_ context.Context, network entity.Network) ([]entity.KnownDao, error) {
	f.gotNetwork = network
	return []entity.KnownDao{{Name: "Arkadiko DAO", ContractAddress: testDao, Network: entity.NetworkMainnet}}, f.err
}

func (f *fakeService) RegisterDao(_ context.Context, dao entity.KnownDao) (entity.KnownDao, bool, error) {
	if f.err != nil {
		return entity.KnownDao{}, false, f.err
	}
	f.registered = append(f.registered, dao)
	dao.Network = entity.NetworkMainnet
	return dao, len(f.registered) == 1, nil
}

func (f *fakeService) GetDaoTreasury(_ context.Context, address string, network entity.Network) (*entity.DaoTreasury, error) {
	f.gotAddress, f.gotNetwork = address, network
	return f.treasury, f.err
}

func (f *fakeService) GetDaoProposals(_ context.Context, address string, _ entity.Network) ([]entity.Proposal, error) {
	f.gotAddress = address
	return []entity.Proposal{}, f.err
}

func (f *fakeService) GetProposalDetails(_ context.Context, id string, _ entity.Network) (*entity.ProposalDetails, error) {
	f.gotAddress = id
	return f.details, f.err
}

func (f *fakeService) GetDaoTreasuryHistory(context.Context, string, entity.Network) ([]entity.TreasuryHistoryPoint, error) {
	return []entity.TreasuryHistoryPoint{{Date: "2024-05-01", BlockHeight: 170000, StxBalance: 12.5}}, f.err
}

func (f *fakeService) GetDaoOverview(context.Context, string, entity.Network) (*entity.DaoOverview, error) {
	return &entity.DaoOverview{Treasury: f.treasury, Proposals: []entity.Proposal{}}, f.err
}

func (f *fakeService) CheckAPIs(context.Context) []entity.APIStatus {
	return f.statuses
}

func serve(t *testing.T, svc *fakeService, method, uri, body string) *fasthttp.RequestCtx {
	t.Helper()

	r := router.New()
	RegisterRoutes(r, NewDaoHandler(context.Background(), svc, time.Second, zap.NewNop()), zap.NewNop())

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	LoggingMiddleware(zap.NewNop(), r.Handler)(&ctx)
	return &ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), out))
}

func TestDaoHandler_GetKnownDaos(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	ctx := serve(t, svc, fasthttp.MethodGet, "/daos?network=testnet", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, entity.NetworkTestnet, svc.gotNetwork)

	var daos []entity.KnownDao
	decodeBody(t, ctx, &daos)
	require.Len(t, daos, 1)
	assert.Equal(t, testDao, daos[0].ContractAddress)

	ctx = serve(t, &fakeService{}, fasthttp.MethodGet, "/daos?network=devnet", "")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestDaoHandler_GetDaoTreasury(t *testing.T) {
	t.Parallel()

	svc := &fakeService{treasury: &entity.DaoTreasury{Name: "Arkadiko", StxBalance: 1250345.67, LastUpdatedBlock: 170000}}
	ctx := serve(t, svc, fasthttp.MethodGet, "/daos/"+testDao+"/treasury", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, testDao, svc.gotAddress)
	assert.JSONEq(t, `{"name":"Arkadiko","stxBalance":1250345.67,"lastUpdatedBlock":170000}`, string(ctx.Response.Body()))

	ctx = serve(t, &fakeService{}, fasthttp.MethodGet, "/daos/"+testDao+"/treasury", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestDaoHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid address", err: fmt.Errorf("%w: %q", domain.ErrInvalidAddress, "x"), want: fasthttp.StatusBadRequest},
		{name: "not found", err: &domain.NotFoundError{Resource: "contract"}, want: fasthttp.StatusNotFound},
		{name: "upstream", err: fmt.Errorf("treasury: %w", &domain.APIError{Status: 503, Message: "Service Unavailable"}), want: fasthttp.StatusBadGateway},
		{name: "rate limited", err: &domain.APIError{Status: 429, Message: "Too Many Requests"}, want: fasthttp.StatusBadGateway},
		{name: "timeout", err: fmt.Errorf("%w: slow", apperrors.ErrTimeout), want: fasthttp.StatusGatewayTimeout},
		{name: "unmapped status", err: fmt.Errorf("proposal 3: %w", domain.ErrUnknownProposalStatus), want: fasthttp.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := serve(t, &fakeService{err: tt.err}, fasthttp.MethodGet, "/daos/"+testDao+"/overview", "")
			assert.Equal(t, tt.want, ctx.Response.StatusCode())

			var body errorResponse
			decodeBody(t, ctx, &body)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestDaoHandler_GetProposalDetails(t *testing.T) {
	t.Parallel()

	details := &entity.ProposalDetails{
		Proposal: entity.Proposal{ID: testDao + ":1", Title: "Fund grants", Status: entity.ProposalActive, DaoContractAddress: testDao},
		Votes:    entity.Votes{Yes: 45, No: 21},
	}
	svc := &fakeService{details: details}
	ctx := serve(t, svc, fasthttp.MethodGet, "/proposals/"+testDao+":1", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, testDao+":1", svc.gotAddress)

	var got entity.ProposalDetails
	decodeBody(t, ctx, &got)
	assert.Equal(t, entity.Votes{Yes: 45, No: 21}, got.Votes)
	assert.Equal(t, entity.ProposalActive, got.Status)

	ctx = serve(t, &fakeService{}, fasthttp.MethodGet, "/proposals/"+testDao+":9", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestDaoHandler_RegisterDao(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	body := `{"name":"Arkadiko","contractAddress":"` + testDao + `"}`

	ctx := serve(t, svc, fasthttp.MethodPost, "/daos", body)
	assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
	var resp registerResponse
	decodeBody(t, ctx, &resp)
	assert.True(t, resp.Added)
	assert.Equal(t, entity.NetworkMainnet, resp.Dao.Network)

	ctx = serve(t, svc, fasthttp.MethodPost, "/daos", body)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = serve(t, svc, fasthttp.MethodPost, "/daos", `{"name":`)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Len(t, svc.registered, 2)
}

func TestDaoHandler_OtherRoutes(t *testing.T) {
	t.Parallel()

	ctx := serve(t, &fakeService{}, fasthttp.MethodGet, "/daos/"+testDao+"/treasury/history", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var points []entity.TreasuryHistoryPoint
	decodeBody(t, ctx, &points)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-05-01", points[0].Date)

	ctx = serve(t, &fakeService{}, fasthttp.MethodGet, "/daos/"+testDao+"/proposals", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `[]`, string(ctx.Response.Body()))
}

func TestDaoHandler_Health(t *testing.T) {
	t.Parallel()

	up, down := true, false
	ctx := serve(t, &fakeService{statuses: []entity.APIStatus{
		{Network: entity.NetworkMainnet, IsWorking: &up},
		{Network: entity.NetworkTestnet, IsWorking: &down},
	}}, fasthttp.MethodGet, "/health", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var resp healthResponse
	decodeBody(t, ctx, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.APIs, 2)

	ctx = serve(t, &fakeService{statuses: []entity.APIStatus{
		{Network: entity.NetworkMainnet, IsWorking: &down},
	}}, fasthttp.MethodGet, "/health", "")
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
}
