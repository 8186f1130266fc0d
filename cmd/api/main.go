package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libralend/internal/config"
	"libralend/internal/telemetry"
)

func main() {
	cfg := config.LoadGateway()
	logger := telemetry.NewLogger("gateway")

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, telemetry.RequestLogger(logger))

	routes := []struct {
		prefix string
		target string
	}{
		{"/api/v1/catalog", cfg.CatalogServiceURL},
		{"/api/v1/circulation", cfg.CirculationServiceURL},
		{"/api/v1/membership", cfg.MembershipServiceURL},
	}
	for _, route := range routes {
		target, err := url.Parse(route.target)
		if err != nil {
			log.Fatalf("Invalid upstream URL %q: %v", route.target, err)
		}
		router.Mount(route.prefix, http.StripPrefix(route.prefix, httputil.NewSingleHostReverseProxy(target)))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Printf("API Gateway listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
