package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libralend/internal/config"
	"libralend/internal/membership"
	"libralend/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadMembership()
	logger := telemetry.NewLogger("membership")

	shutdown, err := telemetry.Setup(ctx, "membership", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(ctx)

	client, db, err := config.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	repo := membership.NewMongoRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	handler := membership.NewHandler(membership.NewService(repo))

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, telemetry.RequestLogger(logger), telemetry.Middleware("membership"))
	router.Mount("/", handler.Routes())

	fmt.Printf("🚀 Starting Membership Service on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
