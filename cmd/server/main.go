package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"realmcore/internal/persistence/indexdb"
	persistlog "realmcore/internal/persistence/log"
	"realmcore/internal/protocol"
	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/tuning"
	"realmcore/internal/sim/world"
	"realmcore/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address (or set REALM_ADDR)")
		realmID    = flag.String("realm", "realm_1", "realm id")
		seed       = flag.Int64("seed", 0, "login placement seed (0 = time based)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		noSpawners = flag.Bool("no_spawners", false, "do not populate mobile spawners")
		logLevel   = flag.String("log_level", "info", "debug|info|warn|error")
		logFormat  = flag.String("log_format", "console", "console|json")
	)
	flag.Parse()

	if env := strings.TrimSpace(os.Getenv("REALM_ADDR")); env != "" {
		*addr = env
	}

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, cats, err := loadConfigs(tp, *configDir, logger)
	if err != nil {
		logger.Fatal("load configs", zap.Error(err))
	}

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatal("protocol schemas", zap.Error(err))
	}

	realmDir := filepath.Join(*dataDir, "realms", *realmID)
	if err := os.MkdirAll(realmDir, 0o755); err != nil {
		logger.Fatal("data dir", zap.Error(err))
	}

	journal := persistlog.NewJournal(realmDir, logger.Named("journal"))
	defer journal.Close()

	idx, err := openRuntimeIndex(realmDir, *disableDB, logger.Named("index"))
	if err != nil {
		logger.Fatal("open index backend", zap.Error(err))
	}
	recorders := world.Recorders{journal}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Warn("index upsert catalogs", zap.Error(err))
		}
		recorders = append(recorders, idx)
	}

	w, err := world.New(world.Config{
		Tuning:   tune,
		Catalogs: cats,
		Recorder: recorders,
		Logger:   logger.Named("world"),
		Seed:     *seed,
	})
	if err != nil {
		logger.Fatal("world", zap.Error(err))
	}
	if !*noSpawners {
		n := w.PopulateSpawners()
		logger.Info("spawners populated", zap.Int("count", n))
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	wsSrv := ws.NewServer(w, validator, logger.Named("ws"))
	mux := newMux(metricsSources{realm: *realmID, world: w, ws: wsSrv, journal: journal, index: idx})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if envBool("REALM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening",
		zap.String("addr", *addr),
		zap.String("realm", *realmID),
		zap.Strings("classes", cats.Classes()),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("ListenAndServe", zap.Error(err))
		cancel()
	}
	<-worldDone
}

// loadConfigs reads tuning and the character catalog, falling back to the
// built-in defaults when a file does not exist.
func loadConfigs(tuningPath, configDir string, logger *zap.Logger) (tuning.Tuning, *catalogs.Catalogs, error) {
	tune, err := tuning.Load(tuningPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return tune, nil, fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tuningPath))
		tune = tuning.Defaults()
	}
	cats, err := catalogs.Load(configDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return tune, nil, fmt.Errorf("load catalogs: %w", err)
		}
		logger.Warn("characters.yaml not found; using defaults", zap.String("dir", configDir))
		cats = catalogs.Defaults()
	}
	return tune, cats, nil
}

func newMux(src metricsSources) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(src))
	if envBool("REALM_ENABLE_ADMIN_HTTP", true) {
		mux.HandleFunc("/admin/v1/state", stateHandler(src))
	}
	return mux
}

// stateHandler serves the live counters as JSON to loopback clients only.
func stateHandler(src metricsSources) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			Realm   string                   `json:"realm"`
			Metrics world.WorldMetrics       `json:"metrics"`
			WS      *ws.Stats                `json:"ws,omitempty"`
			Journal *persistlog.JournalStats `json:"journal,omitempty"`
			Index   *indexdb.Stats           `json:"index,omitempty"`
		}{
			Realm:   src.realm,
			Metrics: src.world.Metrics(),
		}
		if src.ws != nil {
			st := src.ws.Stats()
			resp.WS = &st
		}
		if src.journal != nil {
			st := src.journal.Stats()
			resp.Journal = &st
		}
		if src.index != nil {
			st := src.index.Stats()
			resp.Index = &st
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
