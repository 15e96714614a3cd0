package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"stacks-dao-reader/internal/domain"
	"stacks-dao-reader/internal/domain/entity"
	domainRepo "stacks-dao-reader/internal/domain/repository"

	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.CatalogRepository = (*Repository)(nil)

// DefaultDaos returns the built-in catalog.
func DefaultDaos() []entity.KnownDao {
	return []entity.KnownDao{
		{
			Name:            "Stacking DAO",
			ContractAddress: "SP4SZE494VC2YC5JYG7AYFQ44F5Q4PYV7DVMDPBG",
			Network:         entity.NetworkMainnet,
		},
		{
			Name:            "Arkadiko DAO",
			ContractAddress: "SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR",
			Network:         entity.NetworkMainnet,
		},
		{
			Name:            "Stackswap DAO",
			ContractAddress: "SP1Z92MPDQEWZXW36VX71Q25HKF5K2EPCJ304F275",
			Network:         entity.NetworkMainnet,
		},
	}
}

// Repository is the in-memory known-DAO catalog. Entries are only ever appended.
type Repository struct {
	mu      sync.RWMutex
	entries []entity.KnownDao
	logger  *zap.Logger
}

// NewRepository creates a catalog seeded with initial, skipping duplicate addresses.
func NewRepository(initial []entity.KnownDao, logger *zap.Logger) *Repository {
	r := &Repository{
		entries: make([]entity.KnownDao, 0, len(initial)),
		logger:  logger.Named("CatalogStorage"),
	}
	for _, dao := range initial {
		if _, found := r.find(dao.ContractAddress); found {
			r.logger.Warn("Skipping duplicate catalog entry", zap.String("address", dao.ContractAddress))
			continue
		}
		r.entries = append(r.entries, dao)
	}
	r.logger.Info("Known-DAO catalog initialized", zap.Int("count", len(r.entries)))
	return r
}

// List returns a copy of the catalog, filtered by network unless network is empty.
func (r *Repository) List(_ context.Context, network entity.Network) ([]entity.KnownDao, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.KnownDao, 0, len(r.entries))
	for _, dao := range r.entries {
		if network == "" || dao.Network == network {
			out = append(out, dao)
		}
	}
	return out, nil
}

// Find looks an entry up by case-insensitive exact address match.
func (r *Repository) Find(_ context.Context, contractAddress string) (entity.KnownDao, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dao, found := r.find(contractAddress)
	return dao, found, nil
}

// Register appends dao unless its address is already present. It returns the stored
// entry: the normalized dao when added, the existing entry otherwise.
func (r *Repository) Register(_ context.Context, dao entity.KnownDao) (entity.KnownDao, bool, error) {
	if err := Validate(&dao); err != nil {
		return entity.KnownDao{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, found := r.find(dao.ContractAddress); found {
		r.logger.Debug("DAO already registered", zap.String("address", dao.ContractAddress))
		return existing, false, nil
	}
	r.entries = append(r.entries, dao)
	r.logger.Info("Registered new DAO", zap.String("name", dao.Name), zap.String("address", dao.ContractAddress))
	return dao, true, nil
}

func (r *Repository) find(address string) (entity.KnownDao, bool) {
	for _, dao := range r.entries {
		if strings.EqualFold(dao.ContractAddress, address) {
			return dao, true
		}
	}
	return entity.KnownDao{}, false
}

// Validate checks an entry and fills the network from the address prefix when absent.
func Validate(dao *entity.KnownDao) error {
	dao.ContractAddress = strings.TrimSpace(dao.ContractAddress)
	if !entity.IsValidAddress(dao.ContractAddress) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAddress, dao.ContractAddress)
	}
	if dao.Network == "" {
		inferred, _ := entity.NetworkForAddress(dao.ContractAddress)
		dao.Network = inferred
	} else {
		network, err := entity.ParseNetwork(string(dao.Network))
		if err != nil {
			return err
		}
		dao.Network = network
	}
	if strings.TrimSpace(dao.Name) == "" {
		dao.Name = dao.ContractAddress
	}
	return nil
}
