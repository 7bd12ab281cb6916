package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/siso/internal/auth"
	"github.com/pliu/siso/internal/chat"
	"github.com/pliu/siso/internal/codec"
	"github.com/pliu/siso/internal/config"
	"github.com/pliu/siso/internal/handlers"
	"github.com/pliu/siso/internal/metrics"
	"github.com/pliu/siso/internal/middleware"
	"github.com/pliu/siso/internal/store"
	"github.com/pliu/siso/internal/store/mongostore"
	"github.com/pliu/siso/internal/store/sqlstore"
	"github.com/pliu/siso/internal/ws"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log, err := cfg.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.DBDriver).Fatal("failed to open store")
	}
	defer st.Close()

	c, err := codec.New(cfg.Passphrase, cfg.Cipher)
	if err != nil {
		log.WithError(err).Fatal("failed to set up message codec")
	}
	admin := auth.NewAdminGate(cfg.AdminCode)
	if admin.IsDefault() {
		log.Warn("admin code is the built-in default; set SISO_ADMIN_CODE")
	}
	if cfg.Passphrase == "siso-super-secret-key" {
		log.Warn("message passphrase is the built-in default; set SISO_PASSPHRASE")
	}

	m := metrics.New()

	// Initialize WebSocket Hub
	hub := ws.NewHub(log.WithField("component", "ws"), m)
	go hub.Run(ctx)

	svc := chat.New(chat.Config{
		Store:    st,
		Codec:    c,
		Admin:    admin,
		Notifier: hub,
		Metrics:  m,
		Logger:   log.WithField("component", "chat"),
	})

	limiter := middleware.NewLimiterStore(cfg.RateLimitRPM, cfg.RateLimitBurst, time.Minute)
	defer limiter.Stop()

	proxies, err := middleware.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		log.WithError(err).Fatal("invalid trusted proxies")
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log.WithField("component", "http"), proxies))
	r.Use(middleware.Instrument(m))

	// API Endpoints
	handlers.Routes{
		Service: svc,
		Hub:     hub,
		Limit:   middleware.RateLimit(limiter, m, proxies),
		Log:     log.WithField("component", "api"),
	}.Register(r.PathPrefix("/api").Subrouter())

	r.Handle("/metrics", m.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/").Handler(staticHandler(cfg.StaticDir))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":   cfg.Addr,
			"driver": cfg.DBDriver,
			"cipher": c.Name(),
		}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown timed out")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DBDriver == "mongo" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return mongostore.New(connectCtx, cfg.DBDSN, cfg.DBName)
	}
	return sqlstore.New(cfg.DBDriver, cfg.DBDSN)
}

// staticHandler serves the web client. index.html and scripts are never
// cached so a redeploy is picked up on reload.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		if strings.HasSuffix(r.URL.Path, ".css") || strings.HasSuffix(r.URL.Path, ".js") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		files.ServeHTTP(w, r)
	})
}
