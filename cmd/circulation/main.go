package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libralend/internal/chaos"
	"libralend/internal/circulation"
	"libralend/internal/clients"
	"libralend/internal/config"
	"libralend/internal/reconcile"
	"libralend/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadCirculation()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := telemetry.NewLogger("circulation")

	shutdown, err := telemetry.Setup(ctx, "circulation", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(ctx)

	db, err := config.OpenLendingDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := circulation.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	catalogOpts := []clients.Option{clients.WithTimeout(cfg.RemoteTimeout)}
	if cfg.ChaosCatalogFailureRate > 0 || cfg.ChaosCatalogLatency > 0 {
		injector := chaos.NewFaultInjector(nil)
		if err := injector.SetFailureRate(cfg.ChaosCatalogFailureRate); err != nil {
			log.Fatalf("Invalid fault injection settings: %v", err)
		}
		injector.SetLatency(cfg.ChaosCatalogLatency)
		catalogOpts = append(catalogOpts, clients.WithTransport(injector))
		logger.Warn("fault injection enabled on catalog calls",
			"failure_rate", cfg.ChaosCatalogFailureRate, "latency", cfg.ChaosCatalogLatency.String())
	}

	catalogClient := clients.NewCatalogClient(cfg.CatalogServiceURL, catalogOpts...)
	membershipClient := clients.NewMembershipClient(cfg.MembershipServiceURL, clients.WithTimeout(cfg.RemoteTimeout))
	svc := circulation.NewService(repo, catalogClient, membershipClient, circulation.WithLogger(logger))

	if cfg.OverdueSweepSchedule != "" {
		scheduler, err := reconcile.NewOverdueSweeper(repo, logger).Schedule(cfg.OverdueSweepSchedule)
		if err != nil {
			log.Fatalf("Failed to schedule overdue sweep: %v", err)
		}
		defer scheduler.Stop()
		logger.Info("overdue sweep scheduled", "schedule", cfg.OverdueSweepSchedule)
	}

	handler := circulation.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, telemetry.RequestLogger(logger), telemetry.Middleware("circulation"))
	router.Mount("/", handler.Routes())

	fmt.Printf("🚀 Starting Circulation Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
