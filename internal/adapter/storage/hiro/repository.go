package hiro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	dto "stacks-dao-reader/internal/adapter/storage/hiro/dto"
	"stacks-dao-reader/internal/clarity"
	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ChainRepository = (*Repository)(nil)

// Repository implements ChainRepository against the Hiro Stacks API.
type Repository struct {
	client   *Client
	networks entity.NetworkTable
	logger   *zap.Logger
}

// NewRepository creates a repository resolving base URLs from networks.
func NewRepository(client *Client, networks entity.NetworkTable, logger *zap.Logger) *Repository {
	if networks == nil {
		networks = entity.DefaultNetworks()
	}
	return &Repository{
		client:   client,
		networks: networks,
		logger:   logger.Named("HiroStorage"),
	}
}

// FetchAccountBalance returns the current balances of an address.
func (r *Repository) FetchAccountBalance(
	ctx context.Context,
	address string,
	network entity.Network,
) (*entity.AccountBalance, error) {
	return r.fetchBalance(ctx, address, network, nil)
}

// FetchAccountBalanceAt returns the balances as of untilBlock.
func (r *Repository) FetchAccountBalanceAt(
	ctx context.Context,
	address string,
	network entity.Network,
	untilBlock uint64,
) (*entity.AccountBalance, error) {
	query := url.Values{"until_block": []string{strconv.FormatUint(untilBlock, 10)}}
	return r.fetchBalance(ctx, address, network, query)
}

func (r *Repository) fetchBalance(
	ctx context.Context,
	address string,
	network entity.Network,
	query url.Values,
) (*entity.AccountBalance, error) {
	if !entity.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	cfg, err := r.networks.Resolve(network)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.BaseURL + "/extended/v1/address/" + url.PathEscape(entity.PrincipalOf(address)) + "/balances"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var raw dto.BalancesRaw
	if _, err := r.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	return toDomainBalance(raw), nil
}

// CallReadOnlyFunction invokes a read-only function and decodes its result.
// A result that cannot be decoded is logged and returned undecoded.
func (r *Repository) CallReadOnlyFunction(ctx context.Context, call entity.ReadOnlyCall) (*entity.CallResult, error) {
	if !entity.IsValidAddress(call.ContractAddress) || call.ContractName == "" || call.FunctionName == "" {
		return nil, fmt.Errorf("%w: %s.%s::%s",
			domain.ErrInvalidContractID, call.ContractAddress, call.ContractName, call.FunctionName,
		)
	}
	cfg, err := r.networks.Resolve(call.Network)
	if err != nil {
		return nil, err
	}

	sender := call.Sender
	if sender == "" {
		sender = call.ContractAddress
	}
	args := call.Args
	if args == nil {
		args = []string{}
	}
	body, err := json.Marshal(dto.ReadOnlyRequestRaw{Sender: sender, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode call-read body: %v", apperrors.ErrInternal, err)
	}

	endpoint := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s",
		cfg.BaseURL,
		url.PathEscape(call.ContractAddress),
		url.PathEscape(call.ContractName),
		url.PathEscape(call.FunctionName),
	)
	respBody, err := r.send(ctx, &Request{Method: fasthttp.MethodPost, URL: endpoint, Body: body})
	if err != nil {
		return nil, err
	}

	var raw dto.ReadOnlyResponseRaw
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse call-read response: %v", apperrors.ErrExternalServiceFailure, err)
	}
	if !raw.Okay {
		r.logger.Debug("Contract call reported failure",
			zap.String("contract", call.ContractAddress+"."+call.ContractName),
			zap.String("function", call.FunctionName),
			zap.String("cause", raw.Cause),
		)
		return nil, &domain.ContractCallError{Cause: raw.Cause}
	}

	value, err := clarity.DecodeHex(raw.Result)
	if err != nil {
		r.logger.Warn("Failed to decode contract call result, returning raw payload",
			zap.String("contract", call.ContractAddress+"."+call.ContractName),
			zap.String("function", call.FunctionName),
			zap.Error(err),
		)
		return &entity.CallResult{Raw: raw.Result}, nil
	}
	return &entity.CallResult{Value: &value, Raw: raw.Result}, nil
}

// GetContractInfo returns a contract's interface. A 404 becomes *domain.NotFoundError.
func (r *Repository) GetContractInfo(
	ctx context.Context,
	contractID string,
	network entity.Network,
) (*entity.ContractInfo, error) {
	id, ok := entity.ParseContractID(contractID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidContractID, contractID)
	}
	cfg, err := r.networks.Resolve(network)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/contracts/interface/%s/%s",
		cfg.BaseURL, url.PathEscape(id.Principal), url.PathEscape(id.ContractName),
	)
	var raw dto.ContractInterfaceRaw
	body, err := r.getJSON(ctx, endpoint, &raw)
	if err != nil {
		return nil, notFoundAs(err, "contract "+contractID)
	}
	return toDomainContractInfo(contractID, raw, body), nil
}

// GetBlockInfo returns the block at height.
func (r *Repository) GetBlockInfo(ctx context.Context, height uint64, network entity.Network) (*entity.BlockInfo, error) {
	cfg, err := r.networks.Resolve(network)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.BaseURL + "/extended/v1/block/by_height/" + strconv.FormatUint(height, 10)
	var raw dto.BlockRaw
	if _, err := r.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, notFoundAs(err, "block "+strconv.FormatUint(height, 10))
	}
	return toDomainBlock(raw), nil
}

// GetLatestBlockHeight returns the height of the newest block, or 0 when none is listed.
func (r *Repository) GetLatestBlockHeight(ctx context.Context, network entity.Network) (uint64, error) {
	cfg, err := r.networks.Resolve(network)
	if err != nil {
		return 0, err
	}

	var raw dto.BlockListRaw
	if _, err := r.getJSON(ctx, cfg.BaseURL+"/extended/v1/block?limit=1", &raw); err != nil {
		return 0, err
	}
	if len(raw.Results) == 0 {
		return 0, nil
	}
	return raw.Results[0].Height, nil
}

func (r *Repository) getJSON(ctx context.Context, endpoint string, out any) ([]byte, error) {
	body, err := r.send(ctx, &Request{Method: fasthttp.MethodGet, URL: endpoint})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		r.logger.Error("Failed to unmarshal API response",
			zap.String("url", endpoint),
			zap.Error(err),
			zap.ByteString("bodySample", body[:min(1024, len(body))]),
		)
		return nil, fmt.Errorf("%w: failed to parse response from %s: %v",
			apperrors.ErrExternalServiceFailure, endpoint, err,
		)
	}
	return body, nil
}

// send runs the request and turns non-2xx responses into *domain.APIError.
func (r *Repository) send(ctx context.Context, req *Request) ([]byte, error) {
	r.logger.Debug("Calling chain API", zap.String("method", req.Method), zap.String("url", req.URL))

	resp, err := r.client.Send(ctx, req)
	if err != nil {
		r.logger.Debug("Chain API request failed", zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp)
		r.logger.Debug("Chain API returned non-OK status",
			zap.String("url", req.URL),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return resp.Body, nil
}

// parseAPIError reads the error or message field of the body, falling back to the status text.
func parseAPIError(resp *Response) *domain.APIError {
	var raw dto.ErrorRaw
	if err := json.Unmarshal(resp.Body, &raw); err == nil {
		if raw.Error != "" {
			return &domain.APIError{Status: resp.StatusCode, Message: raw.Error}
		}
		if raw.Message != "" {
			return &domain.APIError{Status: resp.StatusCode, Message: raw.Message}
		}
	}
	return &domain.APIError{Status: resp.StatusCode, Message: fasthttp.StatusMessage(resp.StatusCode)}
}

func notFoundAs(err error, resource string) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound {
		return &domain.NotFoundError{Resource: resource}
	}
	return err
}
