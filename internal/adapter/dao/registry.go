// Package dao selects and implements the adapters that normalize on-chain DAO
// contracts into treasury and proposal views.
package dao

import (
	"context"
	"fmt"
	"sync"

	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"
	domainService "stacks-dao-reader/internal/domain/service"

	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.AdapterResolver = (*Registry)(nil)

// Dependencies are handed to every adapter factory.
type Dependencies struct {
	Chain        domainRepo.ChainRepository
	Tip          domainService.ChainTip
	MaxProposals int
	Logger       *zap.Logger
}

// Factory constructs the adapter for one adapter type.
type Factory func(deps Dependencies) domainService.DaoAdapter

// Detector guesses the adapter type of a contract not tagged in the catalog.
type Detector interface {
	Detect(ctx context.Context, address string, network entity.Network) (entity.AdapterType, bool)
}

// NoopDetector never matches, so untagged contracts use the generic adapter.
type NoopDetector struct{}

// Detect implements Detector.
func (NoopDetector) Detect(context.Context, string, entity.Network) (entity.AdapterType, bool) {
	return "", false
}

// Registry maps catalog entries to adapters. Instances are created once per type and reused.
type Registry struct {
	catalog  domainRepo.CatalogRepository
	deps     Dependencies
	detector Detector
	logger   *zap.Logger

	mu        sync.Mutex
	factories map[entity.AdapterType]Factory
	instances map[entity.AdapterType]domainService.DaoAdapter
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithDetector installs a contract detector consulted for untagged addresses.
func WithDetector(d Detector) RegistryOption {
	return func(r *Registry) {
		if d != nil {
			r.detector = d
		}
	}
}

// NewRegistry creates a registry with the generic adapter registered.
func NewRegistry(catalog domainRepo.CatalogRepository, deps Dependencies, opts ...RegistryOption) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := &Registry{
		catalog:   catalog,
		deps:      deps,
		detector:  NoopDetector{},
		logger:    deps.Logger.Named("DaoRegistry"),
		factories: map[entity.AdapterType]Factory{entity.AdapterGeneric: NewGenericAdapter},
		instances: make(map[entity.AdapterType]domainService.DaoAdapter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the factory for tag. An instance already built for tag is kept.
func (r *Registry) Register(tag entity.AdapterType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = f
}

// AdapterForDao returns the adapter for a contract address.
func (r *Registry) AdapterForDao(
	ctx context.Context,
	address string,
	network entity.Network,
) (domainService.DaoAdapter, error) {
	_, adapter, err := r.Resolve(ctx, address, network)
	return adapter, err
}

// Resolve returns the catalog entry for address (or a synthesized one when it is not
// catalogued) together with its adapter.
func (r *Registry) Resolve(
	ctx context.Context,
	address string,
	network entity.Network,
) (entity.KnownDao, domainService.DaoAdapter, error) {
	if !entity.IsValidAddress(address) {
		return entity.KnownDao{}, nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}

	known, found, err := r.catalog.Find(ctx, address)
	if err != nil {
		return entity.KnownDao{}, nil, fmt.Errorf("catalog lookup for %s failed: %w", address, err)
	}

	if found {
		if known.AdapterType != "" {
			r.logger.Debug("Using catalog adapter",
				zap.String("dao", known.Name), zap.String("adapterType", string(known.AdapterType)),
			)
			return known, r.instance(known.AdapterType), nil
		}
	} else {
		if network == "" {
			inferred, ok := entity.NetworkForAddress(address)
			if !ok {
				return entity.KnownDao{}, nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
			}
			network = inferred
		}
		known = entity.KnownDao{ContractAddress: address, Network: network}
	}

	if tag, ok := r.detector.Detect(ctx, address, known.Network); ok {
		r.logger.Debug("Detected adapter", zap.String("address", address), zap.String("adapterType", string(tag)))
		return known, r.instance(tag), nil
	}

	r.logger.Debug("Using generic adapter", zap.String("address", address))
	return known, r.instance(entity.AdapterGeneric), nil
}

// instance returns the cached adapter for tag, building it on first use.
// Unregistered tags resolve to the generic adapter.
func (r *Registry) instance(tag entity.AdapterType) domainService.DaoAdapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.instances[tag]; ok {
		return a
	}
	f, ok := r.factories[tag]
	if !ok {
		r.logger.Warn("Unknown adapter type, falling back to generic", zap.String("adapterType", string(tag)))
		a := r.instances[entity.AdapterGeneric]
		if a == nil {
			a = r.factories[entity.AdapterGeneric](r.deps)
			r.instances[entity.AdapterGeneric] = a
		}
		r.instances[tag] = a
		return a
	}

	a := f(r.deps)
	r.instances[tag] = a
	return a
}
