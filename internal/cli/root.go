// Package cli implements the daoctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stacks-dao-reader/internal/application/port"
	"stacks-dao-reader/internal/bootstrap"
	"stacks-dao-reader/internal/config"
	"stacks-dao-reader/internal/domain/entity"
	"stacks-dao-reader/internal/logger"
	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/spf13/cobra"
)

// Options are the global flags.
type Options struct {
	ConfigPath string
	Network    string
	LogLevel   string
}

// ServiceFactory builds the DAO service for one invocation.
type ServiceFactory func(ctx context.Context, opts Options, stderr io.Writer) (port.DaoService, error)

// DefaultServiceFactory loads configuration and wires the real adapters. Logs go to stderr
// and the chain-tip watcher is never started for one-shot commands.
func DefaultServiceFactory(ctx context.Context, opts Options, stderr io.Writer) (port.DaoService, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Watcher.Enabled = false
	if opts.LogLevel != "" {
		cfg.Logger.Level = opts.LogLevel
	}
	cfg.Logger.Encoding = "console"

	log, err := logger.New(cfg.Logger, stderr)
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.New(ctx, *cfg, log)
	if err != nil {
		return nil, err
	}
	return app.Service, nil
}

type registerOutput struct {
	Added bool            `json:"added"`
	Dao   entity.KnownDao `json:"dao"`
}

type runner struct {
	opts    Options
	factory ServiceFactory
	service port.DaoService
	network entity.Network
}

// NewRootCommand builds the command tree around factory.
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	r := &runner{factory: factory}

	root := &cobra.Command{
		Use:   "daoctl",
		Short: "Read Stacks DAO treasuries and proposals",
		Long: `daoctl reads DAO state from the Stacks chain API and prints it as JSON.

Example:
  daoctl daos --network mainnet
  daoctl treasury SP4SZE494VC2YC5JYG7AYFQ44F5Q4PYV7DVMDPBG
  daoctl proposal SP2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.arkadiko-dao:1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.opts.ConfigPath, "config", "configs", "directory holding config.yaml")
	flags.StringVarP(&r.opts.Network, "network", "n", "", "mainnet or testnet (inferred from the address when empty)")
	flags.StringVar(&r.opts.LogLevel, "log-level", "error", "log level written to stderr")

	root.AddCommand(
		r.daosCommand(),
		r.registerCommand(),
		r.addressCommand("treasury", "Show the STX treasury of a DAO", r.treasury),
		r.addressCommand("proposals", "List the newest proposals of a DAO", r.proposals),
		r.addressCommand("history", "Sample the treasury balance back from the chain tip", r.history),
		r.addressCommand("overview", "Show treasury and proposals together", r.overview),
		r.proposalCommand(),
		r.statusCommand(),
	)
	return root
}

// Execute runs daoctl with the real adapters.
func Execute(ctx context.Context) error {
	root := NewRootCommand(DefaultServiceFactory)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (r *runner) init(cmd *cobra.Command) error {
	if r.opts.Network != "" {
		network, err := entity.ParseNetwork(r.opts.Network)
		if err != nil {
			return err
		}
		r.network = network
	}
	service, err := r.factory(cmd.Context(), r.opts, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	r.service = service
	return nil
}

func (r *runner) daosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daos",
		Short: "List known DAOs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			daos, err := r.service.GetKnownDaos(cmd.Context(), r.network)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), daos)
		},
	}
}

func (r *runner) registerCommand() *cobra.Command {
	var name string
	var adapterType string
	cmd := &cobra.Command{
		Use:   "register <address>",
		Short: "Add a DAO to the catalog for this invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dao := entity.KnownDao{
				Name:            name,
				ContractAddress: args[0],
				Network:         r.network,
				AdapterType:     entity.AdapterType(adapterType),
			}
			stored, added, err := r.service.RegisterDao(cmd.Context(), dao)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), registerOutput{Added: added, Dao: stored})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&adapterType, "adapter", "", "adapter type tag")
	return cmd
}

func (r *runner) addressCommand(
	use, short string,
	run func(ctx context.Context, address string) (any, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (r *runner) proposalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "proposal <dao-address>:<sequence>",
		Short: "Show one proposal with votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := r.service.GetProposalDetails(cmd.Context(), args[0], r.network)
			if err != nil {
				return err
			}
			if details == nil {
				return fmt.Errorf("%w: proposal %s", apperrors.ErrNotFound, args[0])
			}
			return writeJSON(cmd.OutOrStdout(), details)
		},
	}
}

func (r *runner) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe the chain API of each network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), r.service.CheckAPIs(cmd.Context()))
		},
	}
}

func (r *runner) treasury(ctx context.Context, address string) (any, error) {
	treasury, err := r.service.GetDaoTreasury(ctx, address, r.network)
	if err != nil {
		return nil, err
	}
	if treasury == nil {
		return nil, fmt.Errorf("%w: no treasury for %s", apperrors.ErrNotFound, address)
	}
	return treasury, nil
}

func (r *runner) proposals(ctx context.Context, address string) (any, error) {
	return r.service.GetDaoProposals(ctx, address, r.network)
}

func (r *runner) history(ctx context.Context, address string) (any, error) {
	return r.service.GetDaoTreasuryHistory(ctx, address, r.network)
}

func (r *runner) overview(ctx context.Context, address string) (any, error) {
	return r.service.GetDaoOverview(ctx, address, r.network)
}

// writeJSON encodes the value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
