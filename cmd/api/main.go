package main

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carlo/audit-trail/internal/audit"
	"github.com/carlo/audit-trail/internal/config"
	"github.com/carlo/audit-trail/internal/db"
	"github.com/carlo/audit-trail/internal/handlers"
	"github.com/carlo/audit-trail/internal/middleware"
	"github.com/carlo/audit-trail/internal/repo"
	"github.com/carlo/audit-trail/internal/stats"
)

// newRouter wires the full API: auth, audit entry recording, listing, and
// history with deltas. Split from main so the integration test can build it
// against a mock database.
func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	recorder := audit.NewRecorder(repo.NewEntryRepo(database))

	auditH := &handlers.AuditHandler{Recorder: recorder}
	authH := &handlers.AuthHandler{
		APIToken:    cfg.APIToken,
		Secret:      []byte(cfg.JWTSecret),
		ExpireHours: cfg.JWTExpireHours,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Trace)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.MaxBytes(middleware.DefaultMaxBodyBytes)).
		Post("/auth/login", authH.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWT([]byte(cfg.JWTSecret)))
		r.With(middleware.MaxBytes(middleware.DefaultMaxBodyBytes)).
			Post("/entries", auditH.RecordEntry)
		r.Get("/subjects/{type}/{id}/entries", auditH.ListEntries)
		r.Get("/subjects/{type}/{id}/history", auditH.History)
	})

	return r
}

func main() {
	// Load .env if present; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogger(cfg.LogFormat)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		log.Fatal("JWT_SECRET must be set in prod")
	}

	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)

	if err := db.Run(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	statsJob, err := stats.Run(repo.NewEntryRepo(database), cfg.StatsCron)
	if err != nil {
		log.Fatalf("Failed to start stats job: %v", err)
	}
	defer statsJob.Stop()

	router := newRouter(database, cfg)

	log.Println("Starting server on :" + cfg.Port)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		err = http.ListenAndServeTLS(":"+cfg.Port, cfg.TLSCertFile, cfg.TLSKeyFile, router)
	} else {
		err = http.ListenAndServe(":"+cfg.Port, router)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// setupLogger installs the default slog handler per LOG_FORMAT.
func setupLogger(format string) {
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}
