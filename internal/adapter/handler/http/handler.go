package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"stacks-dao-reader/internal/application/port"
	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

type registerResponse struct {
	Added bool            `json:"added"`
	Dao   entity.KnownDao `json:"dao"`
}

type healthResponse struct {
	Status string             `json:"status"`
	APIs   []entity.APIStatus `json:"apis"`
}

// DaoHandler serves the DAO read API.
type DaoHandler struct {
	service port.DaoService
	rootCtx context.Context
	timeout time.Duration
	logger  *zap.Logger
}

// NewDaoHandler creates a handler. Each request runs under rootCtx bounded by timeout.
func NewDaoHandler(rootCtx context.Context, service port.DaoService, timeout time.Duration, logger *zap.Logger) *DaoHandler {
	return &DaoHandler{
		service: service,
		rootCtx: rootCtx,
		timeout: timeout,
		logger:  logger.Named("DaoHandler"),
	}
}

// GetKnownDaos handles GET /daos[?network=].
func (h *DaoHandler) GetKnownDaos(ctx *fasthttp.RequestCtx) {
	network, ok := h.network(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	daos, err := h.service.GetKnownDaos(reqCtx, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, daos)
}

// RegisterDao handles POST /daos with a KnownDao body.
func (h *DaoHandler) RegisterDao(ctx *fasthttp.RequestCtx) {
	var dao entity.KnownDao
	if err := json.Unmarshal(ctx.PostBody(), &dao); err != nil {
		h.logger.Debug("Invalid register body", zap.Error(err))
		h.writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	stored, added, err := h.service.RegisterDao(reqCtx, dao)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	status := fasthttp.StatusOK
	if added {
		status = fasthttp.StatusCreated
	}
	h.writeJSON(ctx, status, registerResponse{Added: added, Dao: stored})
}

// GetDaoTreasury handles GET /daos/{address}/treasury.
func (h *DaoHandler) GetDaoTreasury(ctx *fasthttp.RequestCtx) {
	address, network, ok := h.daoParams(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	treasury, err := h.service.GetDaoTreasury(reqCtx, address, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if treasury == nil {
		h.writeJSON(ctx, fasthttp.StatusNotFound, errorResponse{Error: "no treasury found for " + address})
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, treasury)
}

// GetDaoProposals handles GET /daos/{address}/proposals.
func (h *DaoHandler) GetDaoProposals(ctx *fasthttp.RequestCtx) {
	address, network, ok := h.daoParams(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	proposals, err := h.service.GetDaoProposals(reqCtx, address, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, proposals)
}

// GetDaoTreasuryHistory handles GET /daos/{address}/treasury/history.
func (h *DaoHandler) GetDaoTreasuryHistory(ctx *fasthttp.RequestCtx) {
	address, network, ok := h.daoParams(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	points, err := h.service.GetDaoTreasuryHistory(reqCtx, address, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, points)
}

// GetDaoOverview handles GET /daos/{address}/overview.
func (h *DaoHandler) GetDaoOverview(ctx *fasthttp.RequestCtx) {
	address, network, ok := h.daoParams(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	overview, err := h.service.GetDaoOverview(reqCtx, address, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, overview)
}

// GetProposalDetails handles GET /proposals/{id}.
func (h *DaoHandler) GetProposalDetails(ctx *fasthttp.RequestCtx) {
	id, ok := h.pathParam(ctx, "id")
	if !ok {
		return
	}
	network, ok := h.network(ctx)
	if !ok {
		return
	}
	reqCtx, cancel := h.requestContext()
	defer cancel()

	details, err := h.service.GetProposalDetails(reqCtx, id, network)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if details == nil {
		h.writeJSON(ctx, fasthttp.StatusNotFound, errorResponse{Error: "proposal " + id + " not found"})
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, details)
}

// Health handles GET /health. It fails only when no network API answers.
func (h *DaoHandler) Health(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext()
	defer cancel()

	statuses := h.service.CheckAPIs(reqCtx)
	resp := healthResponse{Status: "degraded", APIs: statuses}
	code := fasthttp.StatusServiceUnavailable
	for _, s := range statuses {
		if s.IsWorking != nil && *s.IsWorking {
			resp.Status = "ok"
			code = fasthttp.StatusOK
			break
		}
	}
	h.writeJSON(ctx, code, resp)
}

func (h *DaoHandler) requestContext() (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(h.rootCtx)
	}
	return context.WithTimeout(h.rootCtx, h.timeout)
}

func (h *DaoHandler) daoParams(ctx *fasthttp.RequestCtx) (string, entity.Network, bool) {
	address, ok := h.pathParam(ctx, "address")
	if !ok {
		return "", "", false
	}
	network, ok := h.network(ctx)
	return address, network, ok
}

func (h *DaoHandler) pathParam(ctx *fasthttp.RequestCtx, name string) (string, bool) {
	raw, ok := ctx.UserValue(name).(string)
	if !ok || raw == "" {
		h.logger.Error("Missing path parameter", zap.String("param", name))
		h.writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{Error: "missing " + name})
		return "", false
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		h.writeJSON(ctx, fasthttp.StatusBadRequest, errorResponse{Error: "malformed " + name})
		return "", false
	}
	return value, true
}

// network reads the optional ?network= query argument.
func (h *DaoHandler) network(ctx *fasthttp.RequestCtx) (entity.Network, bool) {
	raw := string(ctx.QueryArgs().Peek("network"))
	if raw == "" {
		return "", true
	}
	network, err := entity.ParseNetwork(raw)
	if err != nil {
		h.writeError(ctx, err)
		return "", false
	}
	return network, true
}

func (h *DaoHandler) writeError(ctx *fasthttp.RequestCtx, err error) {
	status := statusForError(err)
	if status >= fasthttp.StatusInternalServerError {
		h.logger.Error("Request failed", zap.ByteString("uri", ctx.RequestURI()), zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Debug("Request rejected", zap.ByteString("uri", ctx.RequestURI()), zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(ctx, status, errorResponse{Error: err.Error()})
}

func (h *DaoHandler) writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return fasthttp.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound), domain.IsAbsence(err):
		return fasthttp.StatusNotFound
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrExternalServiceFailure), errors.Is(err, domain.ErrUnknownProposalStatus):
		return fasthttp.StatusBadGateway
	default:
		return fasthttp.StatusInternalServerError
	}
}
