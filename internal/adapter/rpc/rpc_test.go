package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain/entity"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func networkFor(srv *httptest.Server) entity.NetworkConfig {
	return entity.NewNetworkTable(srv.URL, "")[entity.NetworkMainnet]
}

func TestChecker_CheckAPI(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"server_version":"stacks-blockchain-api v7.10.0","status":"ready","chain_tip":{"block_height":170000,"block_hash":"0xabc"}}`))
	}))
	defer srv.Close()

	status, err := NewChecker(time.Second, zap.NewNop()).CheckAPI(context.Background(), networkFor(srv))
	require.NoError(t, err)
	require.NotNil(t, status.IsWorking)
	assert.True(t, *status.IsWorking)
	require.NotNil(t, status.LatencyMs)
	assert.Equal(t, uint64(170000), status.ChainTipHeight)
	assert.Equal(t, "stacks-blockchain-api v7.10.0", status.ServerVersion)
	assert.Equal(t, entity.NetworkMainnet, status.Network)
}

func TestChecker_CheckAPIFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: apperrors.ErrExternalServiceFailure,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantErr: apperrors.ErrExternalServiceFailure,
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(300 * time.Millisecond)
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: apperrors.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			status, err := NewChecker(50*time.Millisecond, zap.NewNop()).CheckAPI(context.Background(), networkFor(srv))
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, status.IsWorking)
			assert.False(t, *status.IsWorking)
			assert.Nil(t, status.LatencyMs)
		})
	}
}

func TestParseBlockHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		height  uint64
		ok      bool
		wantErr bool
	}{
		{name: "block", message: `{"jsonrpc":"2.0","method":"block","params":{"height":170001,"hash":"0x01"}}`, height: 170001, ok: true},
		{name: "subscribe ack", message: `{"jsonrpc":"2.0","id":1,"result":{}}`},
		{name: "other event", message: `{"jsonrpc":"2.0","method":"mempool","params":{"tx_id":"0x1"}}`},
		{name: "garbage", message: `not json`},
		{name: "rpc error", message: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			height, ok, err := parseBlockHeight([]byte(tt.message))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.height, height)
		})
	}
}

func TestChainTipWatcher_Freshness(t *testing.T) {
	t.Parallel()

	w := NewChainTipWatcher(nil, config.WatcherConfig{StaleAfter: time.Minute}, zap.NewNop())
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	_, fresh := w.Height(entity.NetworkMainnet)
	assert.False(t, fresh)

	w.observe(entity.NetworkMainnet, 170000)
	height, fresh := w.Height(entity.NetworkMainnet)
	assert.True(t, fresh)
	assert.Equal(t, uint64(170000), height)

	clock = clock.Add(2 * time.Minute)
	height, fresh = w.Height(entity.NetworkMainnet)
	assert.False(t, fresh)
	assert.Equal(t, uint64(170000), height)
}

func TestChainTipWatcher_StreamsAndReconnects(t *testing.T) {
	t.Parallel()

	var connections atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]any
		if json.Unmarshal(msg, &req) != nil || req["method"] != "subscribe" {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))

		height := 170000 + int(n)
		_ = conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"method":  "block",
			"params":  map[string]any{"height": height, "hash": "0x01"},
		})
		if n == 1 {
			return
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	w := NewChainTipWatcher(
		[]entity.NetworkConfig{networkFor(srv)},
		config.WatcherConfig{StaleAfter: time.Minute, ReconnectDelay: 10 * time.Millisecond},
		zap.NewNop(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.Eventually(t, func() bool {
		height, fresh := w.Height(entity.NetworkMainnet)
		return fresh && height == 170002
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, connections.Load(), int32(2))
}

func TestWatchedNetworks(t *testing.T) {
	t.Parallel()

	table := entity.NewNetworkTable("http://localhost:3999", "")
	networks, err := WatchedNetworks([]string{"mainnet", "Testnet"}, table)
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "ws://localhost:3999/extended/v1/ws", networks[0].WebSocketURL)
	assert.Equal(t, "wss://api.testnet.hiro.so/extended/v1/ws", networks[1].WebSocketURL)

	_, err = WatchedNetworks([]string{"devnet"}, table)
	assert.Error(t, err)

	_, err = WatchedNetworks(nil, table)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
