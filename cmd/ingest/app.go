package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/giftvault/ingest/internal/config"
	"github.com/giftvault/ingest/internal/infra/cache"
	"github.com/giftvault/ingest/internal/infra/db"
	"github.com/giftvault/ingest/internal/infra/httpx"
	"github.com/giftvault/ingest/internal/ingest"
	"github.com/giftvault/ingest/internal/notify"
	"github.com/giftvault/ingest/internal/provider"
	"github.com/giftvault/ingest/internal/provider/buyme"
	"github.com/giftvault/ingest/internal/provider/dreamcard"
	"github.com/giftvault/ingest/internal/provider/goldcard"
	"github.com/giftvault/ingest/internal/provider/lovecard"
	"github.com/giftvault/ingest/internal/provider/maxgiftcard"
	"github.com/giftvault/ingest/internal/provider/nofshonit"
	"github.com/giftvault/ingest/internal/tracing"
)

// version 由构建时 -ldflags 覆盖。
var version = "dev"

// app 持有一次进程生命周期内的全部组件；close 按构造的逆序释放。
type app struct {
	cfg    config.EffectiveConfig
	log    *zap.Logger
	coord  *ingest.Coordinator
	store  db.SupplierStore
	tracer *tracing.Provider

	closers []func(context.Context) error
}

func newRegistry() (provider.Registry, error) {
	return provider.NewRegistry(
		buyme.Provider{},
		lovecard.Provider{},
		goldcard.Provider{},
		nofshonit.Provider{},
		dreamcard.Provider{},
		maxgiftcard.Provider{},
	)
}

func buildApp(ctx context.Context, cfg config.EffectiveConfig, log *zap.Logger, obs ingest.Observer) (*app, error) {
	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			_ = a.close(context.Background())
		}
	}()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Log.Env,
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 tracing 失败：%w", err)
	}
	a.tracer = tp
	a.closers = append(a.closers, tp.Shutdown)

	fetcher, err := httpx.NewClient(httpx.Options{
		Timeout:          cfg.Scrape.AttemptTimeout,
		ProxyURL:         cfg.Scrape.ProxyURL,
		UserAgents:       httpx.NewUAPool(cfg.Scrape.UserAgents),
		DefaultUserAgent: cfg.Scrape.DefaultUserAgent,
		Logger:           log.Named("fetch"),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化抓取客户端失败：%w", err)
	}

	var c cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedis(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("连接 redis 失败：%w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		c = rc
	default:
		c = cache.NewMemory()
	}

	store, err := db.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("打开 supplier store 失败：%w", err)
	}
	a.store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	sender := notify.NewSMTPSender(notify.SMTPOptions{
		Host:     cfg.Notify.SMTP.Host,
		Port:     cfg.Notify.SMTP.Port,
		Username: cfg.Notify.SMTP.Username,
		Password: cfg.Notify.SMTP.Password,
		From:     cfg.Notify.SMTP.From,
	})
	notifier := notify.New(sender, notify.Options{
		AdminEnabled: cfg.Notify.AdminEnabled,
		AdminEmail:   cfg.Notify.AdminEmail,
	}, log.Named("notify"))

	reg, err := newRegistry()
	if err != nil {
		return nil, fmt.Errorf("初始化 provider registry 失败：%w", err)
	}

	coord, err := ingest.New(ingest.Deps{
		Registry: reg,
		Sources:  ingest.ResolveSources(cfg.Providers),
		Scraper:  provider.NewScraper(fetcher, c, log.Named("scrape")),
		Store:    store,
		Notifier: notifier,
		Observer: obs,
		Tracer:   tp.Tracer(),
		Logger:   log.Named("ingest"),
	}, ingest.Options{
		RetryCount:        cfg.Scrape.RetryCount,
		CacheTTL:          cfg.Scrape.CacheTTL,
		SourceConcurrency: cfg.Scrape.SourceConcurrency,
	})
	if err != nil {
		return nil, err
	}
	a.coord = coord

	log.Info("components ready",
		zap.String("cache", cacheName(cfg)),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("notify", notifier.Enabled()),
		zap.Bool("tracing", cfg.Tracing.Enabled),
		zap.Int("providers", len(coord.Kinds())),
	)
	ok = true
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func cacheName(cfg config.EffectiveConfig) string {
	if cfg.Cache.Backend == config.CacheRedis {
		return "redis(" + cfg.Cache.Redis.Addr + ")"
	}
	return "memory"
}
