package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libralend/internal/catalog"
	"libralend/internal/config"
	"libralend/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadCatalog()
	logger := telemetry.NewLogger("catalog")

	shutdown, err := telemetry.Setup(ctx, "catalog", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(ctx)

	pool, err := config.OpenCatalogPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := catalog.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	handler := catalog.NewHandler(catalog.NewService(pool))

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, telemetry.RequestLogger(logger), telemetry.Middleware("catalog"))
	router.Mount("/", handler.Routes())

	fmt.Printf("🚀 Starting Catalog Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
