package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jtsaich/fda-search-sub000/internal/audit"
	"github.com/jtsaich/fda-search-sub000/internal/httpapi"
	"github.com/jtsaich/fda-search-sub000/internal/obs"
	"github.com/jtsaich/fda-search-sub000/internal/provider"
	"github.com/jtsaich/fda-search-sub000/internal/rbac"
	"github.com/jtsaich/fda-search-sub000/internal/session"
	"github.com/jtsaich/fda-search-sub000/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("FDASEARCH_PG_DSN")
	if dsn == "" {
		log.Fatal("missing FDASEARCH_PG_DSN")
	}
	jwtSecret := os.Getenv("FDASEARCH_AUTH_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("missing FDASEARCH_AUTH_JWT_SECRET")
	}
	addr := os.Getenv("FDASEARCH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	admin, err := rbac.NewAdmin(store)
	if err != nil {
		log.Fatalf("rbac admin: %v", err)
	}
	resolver, err := rbac.NewResolver(store)
	if err != nil {
		log.Fatalf("rbac resolver: %v", err)
	}

	// System roles and the baseline permission catalog must exist before the
	// first request.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := admin.EnsureBuiltins(ctx); err != nil {
		cancel()
		log.Fatalf("ensure builtins: %v", err)
	}
	cancel()

	verifier, err := session.NewVerifier(jwtSecret,
		session.WithIssuer(os.Getenv("FDASEARCH_AUTH_ISSUER")))
	if err != nil {
		log.Fatalf("token verifier: %v", err)
	}
	reader, err := session.NewReader(verifier)
	if err != nil {
		log.Fatalf("session reader: %v", err)
	}

	var providerClient *provider.Client
	if authURL := os.Getenv("FDASEARCH_AUTH_URL"); authURL != "" {
		providerClient, err = provider.New(authURL, os.Getenv("FDASEARCH_AUTH_ANON_KEY"))
		if err != nil {
			log.Fatalf("auth provider: %v", err)
		}
	}

	api, err := httpapi.New(httpapi.Config{
		Reader:          reader,
		Resolver:        resolver,
		Admin:           admin,
		Provider:        providerClient,
		Audit:           audit.New(os.Stdout),
		Profiles:        store.Profiles(),
		QueryBackendURL: os.Getenv("FDASEARCH_QUERY_BACKEND_URL"),
		ReadyProbe:      httpapi.ReadyProbe{DB: store.DB()},
		Version:         version,
		SecureCookies:   os.Getenv("FDASEARCH_INSECURE_COOKIES") == "",
		CORSOrigins:     splitOrigins(os.Getenv("FDASEARCH_CORS_ORIGINS")),
	})
	if err != nil {
		log.Fatalf("http api: %v", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting fda-search-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
