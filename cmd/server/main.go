package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"claimviz.ai/internal/persistence/claimdb"
	persistlog "claimviz.ai/internal/persistence/log"
	"claimviz.ai/internal/protocol"
	"claimviz.ai/internal/sim/catalogs"
	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/tuning"
	"claimviz.ai/internal/sim/viz"
	"claimviz.ai/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configPath   = flag.String("config", "./configs/viz.yaml", "path to viz.yaml (empty for defaults)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		dbPath       = flag.String("db", "", "claim database path (default: <data>/claims.sqlite)")
		seed         = flag.Int64("seed", 1337, "terrain seed")
		disableAudit = flag.Bool("disable_audit", false, "disable the visualization audit trail")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("component", "server")

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	blocksPath := cfg.BlocksPath
	if blocksPath != "" && !filepath.IsAbs(blocksPath) && *configPath != "" {
		blocksPath = filepath.Join(filepath.Dir(*configPath), blocksPath)
	}
	cat, err := catalogs.LoadBlocks(blocksPath)
	if err != nil {
		log.WithError(err).Fatal("load blocks")
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	dbp := strings.TrimSpace(*dbPath)
	if dbp == "" {
		dbp = filepath.Join(*dataDir, "claims.sqlite")
	}
	store, err := claimdb.OpenSQLite(dbp)
	if err != nil {
		log.WithError(err).Fatal("open claim db")
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	stored, err := store.LoadAll(ctx)
	if err != nil {
		log.WithError(err).Fatal("load claims")
	}

	segmentTicks := uint64(cfg.TickRateHz) * 3600
	tickLog := persistlog.NewTickLogger(*dataDir, segmentTicks)
	defer tickLog.Close()
	var audit viz.AuditSink
	if !*disableAudit {
		auditLog := persistlog.NewAuditLogger(*dataDir, segmentTicks)
		defer auditLog.Close()
		audit = multiAuditLogger{a: auditLog, b: store}
	}

	outbox := ws.NewOutbox()
	h, err := host.New(host.Config{
		Tuning:    cfg,
		Catalog:   cat,
		Seed:      *seed,
		Resources: outbox,
		Log:       logger.WithField("component", "host"),
		Audit:     audit,
	})
	if err != nil {
		log.WithError(err).Fatal("host")
	}
	h.SetTickLogger(multiTickLogger{a: tickLog, b: store})
	h.LoadClaims(stored)
	log.WithFields(logrus.Fields{"claims": len(stored), "worlds": len(cfg.Worlds)}).Info("claims loaded")

	go func() {
		if err := h.Run(ctx); err != nil && err != context.Canceled {
			log.WithError(err).Error("host stopped")
		}
	}()

	validator, err := protocol.NewValidator()
	if err != nil {
		log.WithError(err).Fatal("compile schemas")
	}
	wsSrv := ws.NewServer(h, outbox, validator, logger.WithField("component", "ws"))
	a := &api{host: h, store: store, log: logger.WithField("component", "api")}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(a, wsSrv.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{"addr": *addr, "tick_rate_hz": cfg.TickRateHz}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("http server")
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := store.Flush(flushCtx); err != nil {
		log.WithError(err).Warn("flush claim db")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiTickLogger struct {
	a host.TickLogger
	b host.TickLogger
}

func (m multiTickLogger) WriteTick(entry host.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a viz.AuditSink
	b viz.AuditSink
}

func (m multiAuditLogger) WriteAudit(entry viz.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
