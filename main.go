package main

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"classmix/config"
	"classmix/solver"
)

//go:embed schema.sql
var schema string

type app struct {
	db      *sql.DB
	cfg     *config.Server
	params  solver.Params
	log     *zap.Logger
	metrics *metrics
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	configFile := pflag.StringP("config", "c", "", "optional config file (yaml, json or toml)")
	pflag.Parse()

	cfg, err := config.LoadServer(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	params, err := config.LoadParamsFile(cfg.ParamsFile)
	if err != nil {
		log.Fatal("failed to load params", zap.String("file", cfg.ParamsFile), zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.PGConn)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("connected to database")

	if _, err := db.Exec(schema); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a := &app{db: db, cfg: cfg, params: params, log: log, metrics: newMetrics(reg)}

	mux := a.routes()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unhealthy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/google/callback", a.handleGoogleCallback)
	mux.HandleFunc("GET /api/admin/check", a.handleAdminCheck)
	mux.HandleFunc("GET /api/cohorts", a.handleListCohorts)
	mux.HandleFunc("POST /api/cohorts", a.handleCreateCohort)
	mux.HandleFunc("DELETE /api/cohorts/{cohortID}", a.handleDeleteCohort)
	mux.HandleFunc("POST /api/cohorts/{cohortID}/import", a.handleImport)
	mux.HandleFunc("GET /api/cohorts/{cohortID}/students", a.handleListStudents)
	mux.HandleFunc("PATCH /api/cohorts/{cohortID}/params", a.handleUpdateParams)
	mux.HandleFunc("POST /api/cohorts/{cohortID}/solve", a.handleSolve)
	mux.HandleFunc("GET /api/cohorts/{cohortID}/runs", a.handleListRuns)
	mux.HandleFunc("GET /api/cohorts/{cohortID}/export", a.handleExport)
	return mux
}
