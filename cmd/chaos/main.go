package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"libralend/internal/chaos"
	"libralend/internal/circulation"
	"libralend/internal/clients"
	"libralend/internal/config"
	"libralend/internal/reconcile"
	"libralend/internal/telemetry"
)

var errHypothesisRejected = errors.New("hypothesis rejected")

var (
	duration time.Duration
	lending  chaos.Lending
	injector *chaos.FaultInjector
	closeDB  func() error
	shutdown telemetry.ShutdownFunc
)

func main() {
	root := &cobra.Command{
		Use:          "chaos",
		Short:        "Run game-day experiments against the lending service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return errors.Join(closeDB(), shutdown(cmd.Context()))
		},
	}
	root.PersistentFlags().DurationVar(&duration, "duration", 30*time.Second, "how long to observe the experiment")

	root.AddCommand(outageCmd(), raceCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup wires the lending service in-process. Its catalog calls go through the
// injector while the auditor reads the catalog directly.
func setup(ctx context.Context) error {
	cfg, err := config.LoadCirculation()
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger("chaos")

	shutdown, err = telemetry.Setup(ctx, "chaos", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}

	db, err := config.OpenLendingDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	closeDB = db.Close
	repo := circulation.NewPostgresRepository(db)

	injector = chaos.NewFaultInjector(nil)
	faulty := clients.NewCatalogClient(cfg.CatalogServiceURL,
		clients.WithTimeout(cfg.RemoteTimeout), clients.WithTransport(injector))
	members := clients.NewMembershipClient(cfg.MembershipServiceURL, clients.WithTimeout(cfg.RemoteTimeout))

	lending = chaos.Lending{
		Service: circulation.NewService(repo, faulty, members, circulation.WithLogger(logger)),
		Loans:   repo,
		Auditor: reconcile.NewAuditor(repo, clients.NewCatalogClient(cfg.CatalogServiceURL)),
	}
	return nil
}

func outageCmd() *cobra.Command {
	var returns int
	cmd := &cobra.Command{
		Use:   "outage",
		Short: "Return loans while every catalog call fails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), chaos.CatalogOutageExperiment(lending, injector, returns, duration))
		},
	}
	cmd.Flags().IntVar(&returns, "returns", 5, "loans to return during the outage")
	return cmd
}

func raceCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "race <member-id> <book-id>",
		Short: "Borrow the same book from many goroutines at once",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[1])
			}
			return run(cmd.Context(), chaos.ConcurrentLoanExperiment(lending, args[0], bookID, concurrency, duration))
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "simultaneous borrowers")
	return cmd
}

func run(ctx context.Context, exp chaos.Experiment) error {
	result, err := chaos.NewEngine(telemetry.NewLogger("chaos")).RunExperiment(ctx, exp)
	if result != nil {
		chaos.PrintResult(os.Stdout, result)
	}
	if err != nil {
		log.Printf("Chaos experiment failed: %v", err)
		return err
	}
	if !result.HypothesisHeld {
		return errHypothesisRejected
	}
	return nil
}
