package hiro

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testDao      = "SP4SZE494VC2YC5JYG7AYFQ44F5Q4PYV7DVMDPBG"
	testContract = testDao + ".stacking-dao-core-v1"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) (*Repository, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	noWait := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	client := NewClient(NewFastHTTPTransport(5*time.Second), DefaultRetryPolicy(), zap.NewNop(), WithSleeper(noWait))
	repo := NewRepository(client, entity.NewNetworkTable(srv.URL, srv.URL), zap.NewNop())
	return repo, &hits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestFetchAccountBalance(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/address/"+testDao+"/balances", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, http.StatusOK, `{
			"stx": {"balance": "1250345670000", "total_sent": "0", "total_received": "1250345670000", "locked": "0", "lock_height": 0},
			"fungible_tokens": {"SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.arkadiko-token::diko": {"balance": "42", "total_sent": "0", "total_received": "42"}},
			"non_fungible_tokens": {}
		}`)
	})

	balance, err := repo.FetchAccountBalance(context.Background(), testContract, entity.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, "1250345670000", balance.STX.Balance)
	assert.Equal(t, "42", balance.FungibleTokens["SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.arkadiko-token::diko"].Balance)
	assert.Empty(t, balance.NonFungibleTokens)
}

func TestFetchAccountBalanceAt(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "150000", r.URL.Query().Get("until_block"))
		writeJSON(w, http.StatusOK, `{"stx": {"balance": "5"}}`)
	})

	balance, err := repo.FetchAccountBalanceAt(context.Background(), testDao, entity.NetworkMainnet, 150000)
	require.NoError(t, err)
	assert.Equal(t, "5", balance.STX.Balance)
}

func TestFetchAccountBalance_ValidatesBeforeCalling(t *testing.T) {
	t.Parallel()

	repo, hits := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := repo.FetchAccountBalance(context.Background(), "0xdeadbeef", entity.NetworkMainnet)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = repo.FetchAccountBalance(context.Background(), testDao, "devnet")
	assert.ErrorIs(t, err, domain.ErrUnknownNetwork)

	assert.Equal(t, int32(0), hits.Load())
}

func TestFetchAccountBalance_APIErrors(t *testing.T) {
	t.Parallel()

	t.Run("error field", func(t *testing.T) {
		t.Parallel()
		repo, hits := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"error": "invalid principal"}`)
		})
		_, err := repo.FetchAccountBalance(context.Background(), testDao, entity.NetworkMainnet)
		var apiErr *domain.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "invalid principal", apiErr.Message)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("message field", func(t *testing.T) {
		t.Parallel()
		repo, _ := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"message": "quota"}`)
		})
		_, err := repo.FetchAccountBalance(context.Background(), testDao, entity.NetworkMainnet)
		var apiErr *domain.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "quota", apiErr.Message)
	})

	t.Run("status text fallback after retries", func(t *testing.T) {
		t.Parallel()
		repo, hits := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, `oops`)
		})
		_, err := repo.FetchAccountBalance(context.Background(), testDao, entity.NetworkMainnet)
		var apiErr *domain.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "Internal Server Error", apiErr.Message)
		assert.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)
		assert.Equal(t, int32(4), hits.Load())
	})
}

func TestCallReadOnlyFunction(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/contracts/call-read/"+testDao+"/stacking-dao-core-v1/get-name", r.URL.Path)

		var body struct {
			Sender    string   `json:"sender"`
			Arguments []string `json:"arguments"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testDao, body.Sender)
		assert.NotNil(t, body.Arguments)

		writeJSON(w, http.StatusOK, `{"okay": true, "result": "0x070d0000000c537461636b696e672044414f"}`)
	})

	res, err := repo.CallReadOnlyFunction(context.Background(), entity.ReadOnlyCall{
		ContractAddress: testDao,
		ContractName:    "stacking-dao-core-v1",
		FunctionName:    "get-name",
		Network:         entity.NetworkMainnet,
	})
	require.NoError(t, err)
	require.True(t, res.Decoded())
	name, ok := res.Value.StringValue()
	assert.True(t, ok)
	assert.Equal(t, "Stacking DAO", name)
}

func TestCallReadOnlyFunction_ContractFailure(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"okay": false, "cause": "Unchecked(NoSuchContract)"}`)
	})

	_, err := repo.CallReadOnlyFunction(context.Background(), entity.ReadOnlyCall{
		ContractAddress: testDao,
		ContractName:    "missing",
		FunctionName:    "get-name",
		Network:         entity.NetworkMainnet,
	})
	var callErr *domain.ContractCallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "Unchecked(NoSuchContract)", callErr.Cause)
	assert.True(t, domain.IsAbsence(err))
}

func TestCallReadOnlyFunction_UndecodableResultIsRaw(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"okay": true, "result": "0xff00"}`)
	})

	res, err := repo.CallReadOnlyFunction(context.Background(), entity.ReadOnlyCall{
		ContractAddress: testDao,
		ContractName:    "dao",
		FunctionName:    "get-info",
		Network:         entity.NetworkMainnet,
	})
	require.NoError(t, err)
	assert.False(t, res.Decoded())
	assert.Equal(t, "0xff00", res.Raw)
}

func TestGetContractInfo(t *testing.T) {
	t.Parallel()

	repo, hits := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/contracts/interface/" + testDao + "/stacking-dao-core-v1":
			writeJSON(w, http.StatusOK, `{
				"functions": [
					{"name": "get-name", "access": "read_only", "args": [], "outputs": {}},
					{"name": "deposit", "access": "public", "args": []}
				],
				"variables": [], "maps": [], "epoch": "Epoch25"
			}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"error": "contract not found"}`)
		}
	})

	info, err := repo.GetContractInfo(context.Background(), testContract, entity.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, testContract, info.ContractID)
	assert.Len(t, info.Functions, 2)
	assert.True(t, info.HasFunction("get-name"))
	assert.Equal(t, "Epoch25", info.Epoch)
	assert.Contains(t, string(info.Raw), `"variables"`)

	_, err = repo.GetContractInfo(context.Background(), testDao+".nope", entity.NetworkMainnet)
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	before := hits.Load()
	_, err = repo.GetContractInfo(context.Background(), testDao, entity.NetworkMainnet)
	assert.ErrorIs(t, err, domain.ErrInvalidContractID)
	_, err = repo.GetContractInfo(context.Background(), "a.b.c", entity.NetworkMainnet)
	assert.ErrorIs(t, err, domain.ErrInvalidContractID)
	assert.Equal(t, before, hits.Load())
}

func TestGetBlockInfoAndLatestHeight(t *testing.T) {
	t.Parallel()

	var empty atomic.Bool
	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/extended/v1/block/by_height/150000":
			writeJSON(w, http.StatusOK, `{
				"canonical": true, "height": 150000, "hash": "0xabc",
				"burn_block_time": 1714521600, "burn_block_time_iso": "2024-05-01T00:00:00.000Z",
				"burn_block_height": 841000, "txs": ["0x1", "0x2"]
			}`)
		case "/extended/v1/block":
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			if empty.Load() {
				writeJSON(w, http.StatusOK, `{"limit": 1, "offset": 0, "total": 0, "results": []}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"limit": 1, "offset": 0, "total": 1, "results": [{"height": 170123, "tx_count": 9}]}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"error": "cannot find block"}`)
		}
	})

	block, err := repo.GetBlockInfo(context.Background(), 150000, entity.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(150000), block.Height)
	assert.Equal(t, int64(1714521600), block.BurnBlockTime)
	assert.Equal(t, 2, block.TxCount)
	assert.True(t, block.Canonical)

	_, err = repo.GetBlockInfo(context.Background(), 1, entity.NetworkMainnet)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	height, err := repo.GetLatestBlockHeight(context.Background(), entity.NetworkTestnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(170123), height)

	empty.Store(true)
	height, err = repo.GetLatestBlockHeight(context.Background(), entity.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), height)
}
