package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/auditlog"
	"github.com/kisuya/reasoncard/internal/auth"
	"github.com/kisuya/reasoncard/internal/brief"
	"github.com/kisuya/reasoncard/internal/catalog"
	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/compare"
	"github.com/kisuya/reasoncard/internal/config"
	"github.com/kisuya/reasoncard/internal/detector"
	"github.com/kisuya/reasoncard/internal/domain"
	"github.com/kisuya/reasoncard/internal/httpapi"
	"github.com/kisuya/reasoncard/internal/metrics"
	"github.com/kisuya/reasoncard/internal/notifier"
	"github.com/kisuya/reasoncard/internal/reasonengine"
	"github.com/kisuya/reasoncard/internal/reportsm"
	"github.com/kisuya/reasoncard/internal/scanner"
	"github.com/kisuya/reasoncard/internal/store"

	"github.com/prometheus/client_golang/prometheus"
)

// serveCmd wires every collaborator (store, catalog, reason engine
// adapters, notifier, brief builder, compare classifier, scanner) and
// starts the HTTP API. Grounded on cprotocol/scan.go's cobra.Command
// factory shape: flags bound to local vars in a closure, a RunE that
// builds dependencies and blocks until ctx is cancelled.
func serveCmd(ctx context.Context) *cobra.Command {
	var (
		configPath string
		addr       string
		port       int
		auditDSN   string
		redisAddr  string
		jwtSecret  string
		catalogCSV string
		scanPeriod time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the reasoncard detector, reason engine, and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ctx, serveOptions{
				configPath: configPath,
				addr:       addr,
				port:       port,
				auditDSN:   auditDSN,
				redisAddr:  redisAddr,
				jwtSecret:  jwtSecret,
				catalogCSV: catalogCSV,
				scanPeriod: scanPeriod,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional, falls back to built-in defaults)")
	cmd.Flags().StringVar(&addr, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&auditDSN, "audit-dsn", os.Getenv("REASONCARD_AUDIT_DSN"), "postgres DSN for the append-only audit log (lib/pq)")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", os.Getenv("REASONCARD_REDIS_ADDR"), "redis address for the notification cooldown mirror (empty disables mirroring)")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", os.Getenv("REASONCARD_JWT_SECRET"), "HMAC secret for bearer tokens (required)")
	cmd.Flags().StringVar(&catalogCSV, "catalog", "", "path to a symbol catalog YAML file (optional, falls back to a tiny built-in seed)")
	cmd.Flags().DurationVar(&scanPeriod, "scan-period", time.Minute, "polling interval for the price scanner")

	return cmd
}

type serveOptions struct {
	configPath string
	addr       string
	port       int
	auditDSN   string
	redisAddr  string
	jwtSecret  string
	catalogCSV string
	scanPeriod time.Duration
}

func runServe(ctx context.Context, opt serveOptions) error {
	if opt.jwtSecret == "" {
		return fmt.Errorf("reasoncard: --jwt-secret (or REASONCARD_JWT_SECRET) is required")
	}

	cfg, err := loadConfig(opt.configPath)
	if err != nil {
		return fmt.Errorf("reasoncard: load config: %w", err)
	}

	clock := clockid.SystemClock{}
	minter := clockid.UUIDMinter{}
	st := store.New(clock, minter)

	cat, err := loadCatalog(opt.catalogCSV)
	if err != nil {
		return fmt.Errorf("reasoncard: load catalog: %w", err)
	}

	var audit *auditlog.Sink
	if opt.auditDSN != "" {
		audit, err = auditlog.Open(opt.auditDSN, 5*time.Second)
		if err != nil {
			return fmt.Errorf("reasoncard: open audit log: %w", err)
		}
		defer audit.Close()
	}

	var redisMirror *redis.Client
	if opt.redisAddr != "" {
		redisMirror = redis.NewClient(&redis.Options{Addr: opt.redisAddr})
		defer redisMirror.Close()
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	adapters := []reasonengine.NamedAdapter{
		{Name: "sec-edgar", Fetcher: reasonengine.NewHTTPAdapter("sec-edgar", "filing", "https://data.sec.gov/search?symbol=%s&market=%s", cfg.ReasonEngine)},
		{Name: "dart", Fetcher: reasonengine.NewHTTPAdapter("dart", "filing", "https://opendart.fss.or.kr/search?symbol=%s&market=%s", cfg.ReasonEngine)},
		{Name: "news", Fetcher: reasonengine.NewHTTPAdapter("news", "news", "https://newsapi.example/search?symbol=%s&market=%s", cfg.ReasonEngine)},
	}

	engine := reasonengine.New(st, cfg.ReasonEngine, adapters, audit, clock, minter, log.Logger)
	engine.Breakers().SetMetrics(reg)
	queue := reasonengine.NewQueue(engine, 4, 256, log.Logger)
	queue.SetDepthGauge(reg.QueueDepth)
	defer queue.Close()

	reports := reportsm.New(st, clock, log.Logger)
	notif := notifier.New(st, cfg.Notifier, clock, minter, redisMirror, log.Logger)
	notif.Run(ctx)
	defer notif.Stop()

	briefs := brief.New(st, cfg.Brief, cfg.Calendars, clock, minter)
	cmp := compare.New(st, cfg.Compare, clock)
	tokens := auth.NewTokens(opt.jwtSecret, 24*time.Hour)

	det := detector.New()
	feed := noopPriceFeed{}
	sc := scanner.New(det, st, queue, notif, feed, cfg.Calendars, cfg.Detector, clock, minter, opt.scanPeriod, log.Logger)
	sc.Run(ctx)
	defer sc.Stop()

	httpCfg := httpapi.DefaultServerConfig()
	httpCfg.Host = opt.addr
	httpCfg.Port = opt.port

	srv := httpapi.NewServer(httpCfg, httpapi.Deps{
		Store:    st,
		Tokens:   tokens,
		Catalog:  cat,
		Metrics:  reg,
		Engine:   engine,
		Queue:    queue,
		Reports:  reports,
		Notifier: notif,
		Briefs:   briefs,
		Compare:  cmp,
		Clock:    clock,
		Minter:   minter,
	}, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", fmt.Sprintf("%s:%d", opt.addr, opt.port)).Msg("reasoncardd listening")
		if startErr := srv.Start(); startErr != nil {
			errCh <- startErr
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.New("seed-v1", nil), nil
	}
	return catalog.LoadYAML(path)
}

// noopPriceFeed is the built-in fallback PriceFeed: it reports no tick
// for any symbol. An operator wires a real feed (KRX/NASDAQ market-data
// vendor) by replacing this with their own scanner.PriceFeed
// implementation; reasoncardd ships no vendored market-data client.
type noopPriceFeed struct{}

func (noopPriceFeed) LatestTick(ctx context.Context, market domain.Market, symbol string) (detector.Tick, error) {
	return detector.Tick{}, apperr.New(apperr.CodeTemporarilyUnavail, "no price feed configured")
}
