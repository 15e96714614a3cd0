package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dto "stacks-dao-reader/internal/adapter/storage/hiro/dto"
	"stacks-dao-reader/internal/domain/entity"
	domainService "stacks-dao-reader/internal/domain/service"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.APIChecker = (*Checker)(nil)

const statusPath = "/extended"

// Checker implements the domainService.APIChecker interface.
type Checker struct {
	client  *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewChecker creates a new API checker. timeout bounds a single probe.
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		client: &fasthttp.Client{
			ReadTimeout: timeout,
		},
		timeout: timeout,
		logger:  logger.Named("APICheckerAdapter"),
	}
}

// CheckAPI probes the status endpoint of a network's API. The returned status is
// populated even when err is non-nil.
func (c *Checker) CheckAPI(ctx context.Context, network entity.NetworkConfig) (entity.APIStatus, error) {
	status := entity.APIStatus{Network: network.Name, URL: network.BaseURL}
	notWorking := false
	status.IsWorking = &notWorking

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	statusURL := network.BaseURL + statusPath
	req.SetRequestURI(statusURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return status, fmt.Errorf("%w: status check of %s: %v", apperrors.ErrTimeout, statusURL, context.DeadlineExceeded)
	}

	startTime := time.Now()
	err := c.client.DoTimeout(req, resp, timeout)
	latency := time.Since(startTime)

	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			c.logger.Debug("API status check timed out", zap.String("url", statusURL), zap.Duration("timeout", timeout))
			return status, fmt.Errorf("%w: status check of %s timed out after %v: %v",
				apperrors.ErrTimeout, statusURL, timeout, err,
			)
		}
		c.logger.Debug("API status check failed", zap.String("url", statusURL), zap.Error(err))
		return status, fmt.Errorf("%w: status check of %s failed: %v",
			apperrors.ErrExternalServiceFailure, statusURL, err,
		)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("API status check returned non-OK status",
			zap.String("url", statusURL), zap.Int("statusCode", resp.StatusCode()),
		)
		return status, fmt.Errorf("%w: %s returned http status %d",
			apperrors.ErrExternalServiceFailure, statusURL, resp.StatusCode(),
		)
	}

	var raw dto.StatusRaw
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		c.logger.Debug("API status body is not JSON", zap.String("url", statusURL), zap.ByteString("body", resp.Body()))
		return status, fmt.Errorf("%w: %s returned invalid JSON: %v",
			apperrors.ErrExternalServiceFailure, statusURL, err,
		)
	}

	working := true
	latencyMs := latency.Milliseconds()
	status.IsWorking = &working
	status.LatencyMs = &latencyMs
	status.ServerVersion = raw.ServerVersion
	if raw.ChainTip != nil {
		status.ChainTipHeight = raw.ChainTip.BlockHeight
	}

	c.logger.Debug("API is working",
		zap.String("network", string(network.Name)), zap.Duration("latency", latency),
		zap.Uint64("chainTip", status.ChainTipHeight),
	)
	return status, nil
}
