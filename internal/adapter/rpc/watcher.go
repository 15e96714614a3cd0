package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain/entity"
	domainService "stacks-dao-reader/internal/domain/service"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.ChainTip = (*ChainTipWatcher)(nil)

// subscribePayload asks the event stream for new block notifications.
var subscribePayload = []byte(`{"jsonrpc":"2.0","id":1,"method":"subscribe","params":{"event":"block"}}`)

const blockEvent = "block"

// JSONRPCMessage covers responses and notifications on the event stream.
type JSONRPCMessage struct {
	ID      any             `json:"id,omitempty"`
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure for a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type blockNotification struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

type tip struct {
	height uint64
	seenAt time.Time
}

// ChainTipWatcher follows block events per network and remembers the latest height.
type ChainTipWatcher struct {
	networks       []entity.NetworkConfig
	staleAfter     time.Duration
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logger         *zap.Logger
	now            func() time.Time

	mu   sync.RWMutex
	tips map[entity.Network]tip
}

// NewChainTipWatcher creates a watcher for the given networks. Nothing connects until Start.
func NewChainTipWatcher(networks []entity.NetworkConfig, cfg config.WatcherConfig, logger *zap.Logger) *ChainTipWatcher {
	return &ChainTipWatcher{
		networks:       networks,
		staleAfter:     cfg.GetStaleAfter(),
		reconnectDelay: cfg.GetReconnectDelay(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger.Named("ChainTipWatcher"),
		now:    time.Now,
		tips:   make(map[entity.Network]tip),
	}
}

// Start runs one stream per network in the background until rootCtx is cancelled.
func (w *ChainTipWatcher) Start(rootCtx context.Context) {
	for _, network := range w.networks {
		go w.watch(rootCtx, network)
	}
}

// Height implements domainService.ChainTip. A tip older than the staleness window is not fresh.
func (w *ChainTipWatcher) Height(network entity.Network) (uint64, bool) {
	w.mu.RLock()
	t, ok := w.tips[network]
	w.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if w.staleAfter > 0 && w.now().Sub(t.seenAt) > w.staleAfter {
		return t.height, false
	}
	return t.height, true
}

func (w *ChainTipWatcher) observe(network entity.Network, height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tips[network] = tip{height: height, seenAt: w.now()}
}

func (w *ChainTipWatcher) watch(ctx context.Context, network entity.NetworkConfig) {
	log := w.logger.With(zap.String("network", string(network.Name)), zap.String("url", network.WebSocketURL))
	log.Info("Starting chain tip stream")

	for {
		err := w.stream(ctx, network)
		if ctx.Err() != nil {
			log.Info("Chain tip stream stopping due to context cancellation.")
			return
		}
		log.Warn("Chain tip stream interrupted, reconnecting",
			zap.Error(err), zap.Duration("delay", w.reconnectDelay),
		)

		timer := time.NewTimer(w.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Chain tip stream stopping due to context cancellation.")
			return
		case <-timer.C:
		}
	}
}

// stream holds one connection open until it fails or ctx ends.
func (w *ChainTipWatcher) stream(ctx context.Context, network entity.NetworkConfig) error {
	conn, _, err := w.dialer.DialContext(ctx, network.WebSocketURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s failed: %v", apperrors.ErrExternalServiceFailure, network.WebSocketURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(w.dialer.HandshakeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, subscribePayload); err != nil {
		return fmt.Errorf("%w: subscribe on %s failed: %v", apperrors.ErrExternalServiceFailure, network.WebSocketURL, err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: read from %s failed: %v", apperrors.ErrExternalServiceFailure, network.WebSocketURL, err)
		}

		height, ok, err := parseBlockHeight(message)
		if err != nil {
			return err
		}
		if ok {
			w.observe(network.Name, height)
			w.logger.Debug("New block", zap.String("network", string(network.Name)), zap.Uint64("height", height))
		}
	}
}

// parseBlockHeight extracts the height from a block notification. Other messages are ignored;
// an error response ends the stream.
func parseBlockHeight(message []byte) (uint64, bool, error) {
	var msg JSONRPCMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return 0, false, nil
	}
	if msg.Error != nil {
		return 0, false, fmt.Errorf("%w: event stream returned json-rpc error: %d %s",
			apperrors.ErrExternalServiceFailure, msg.Error.Code, msg.Error.Message,
		)
	}
	if msg.Method != blockEvent || len(msg.Params) == 0 {
		return 0, false, nil
	}
	var block blockNotification
	if err := json.Unmarshal(msg.Params, &block); err != nil || block.Height == 0 {
		return 0, false, nil
	}
	return block.Height, true, nil
}

var errNoNetworks = errors.New("no networks to watch")

// WatchedNetworks resolves configured network names through the table.
func WatchedNetworks(names []string, table entity.NetworkTable) ([]entity.NetworkConfig, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, errNoNetworks)
	}
	out := make([]entity.NetworkConfig, 0, len(names))
	for _, name := range names {
		network, err := entity.ParseNetwork(name)
		if err != nil {
			return nil, err
		}
		nc, err := table.Resolve(network)
		if err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, nil
}
