package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/provider"
)

// SupplierUpserter 是 Supplier 持久化协作方（db.SupplierStore 满足该接口）。
type SupplierUpserter interface {
	UpsertSuppliersByName(ctx context.Context, suppliers []domain.Supplier) error
}

// Alerter 是失败告警协作方（notify.Notifier 满足该接口）。
type Alerter interface {
	Notify(ctx context.Context, provider string, cause any)
}

// Options 是抓取参数（来自配置）。
type Options struct {
	RetryCount int
	CacheTTL   time.Duration
	// SourceConcurrency 是单个 provider 内同时抓取的 Source 数；<=1 表示顺序抓取。
	SourceConcurrency int
}

// Deps 是 Coordinator 的协作方。Registry / Scraper / Store 必填，其余可为 nil。
type Deps struct {
	Registry provider.Registry
	Sources  map[domain.ProviderKind][]domain.Source
	Scraper  *provider.Scraper
	Store    SupplierUpserter
	Notifier Alerter
	Observer Observer
	Tracer   trace.Tracer
	Logger   *zap.Logger
}

// Coordinator 编排“抓取全部 provider → 构造 Supplier → 按 name upsert”。
//
// 约束：
// - 单个 Source 失败只记录、告警，然后继续；不会中断同 provider 的其他 Source，更不会影响其他 provider
// - 每个 provider 的 Supplier 在全部 Source 处理完后一次性批量 upsert
// - ScrapeAll 对每个 provider 开一个 goroutine，provider 之间没有顺序保证
type Coordinator struct {
	reg      provider.Registry
	sources  map[domain.ProviderKind][]domain.Source
	scraper  *provider.Scraper
	store    SupplierUpserter
	notifier Alerter
	obs      Observer
	tracer   trace.Tracer
	log      *zap.Logger
	opts     Options
}

func New(deps Deps, opts Options) (*Coordinator, error) {
	if deps.Scraper == nil {
		return nil, errors.New("scraper 不能为空")
	}
	if deps.Store == nil {
		return nil, errors.New("supplier store 不能为空")
	}
	if opts.RetryCount < 1 {
		return nil, fmt.Errorf("retry count 必须 >= 1，实际 %d", opts.RetryCount)
	}
	if opts.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl 必须 > 0，实际 %s", opts.CacheTTL)
	}
	if opts.SourceConcurrency < 1 {
		opts.SourceConcurrency = 1
	}

	c := &Coordinator{
		reg:      deps.Registry,
		sources:  make(map[domain.ProviderKind][]domain.Source, len(deps.Sources)),
		scraper:  deps.Scraper,
		store:    deps.Store,
		notifier: deps.Notifier,
		obs:      deps.Observer,
		tracer:   deps.Tracer,
		log:      deps.Logger,
		opts:     opts,
	}
	for k, srcs := range deps.Sources {
		c.sources[k] = append([]domain.Source(nil), srcs...)
	}
	if c.obs == nil {
		c.obs = nopObserver{}
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("ingest")
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// Kinds 返回已注册且至少有一个 Source 的 provider（固定顺序）。
func (c *Coordinator) Kinds() []domain.ProviderKind {
	out := make([]domain.ProviderKind, 0, len(domain.AllKinds))
	for _, k := range c.reg.Kinds() {
		if len(c.sources[k]) > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Sources 返回 provider 的 Source 列表副本。
func (c *Coordinator) Sources(kind domain.ProviderKind) []domain.Source {
	return append([]domain.Source(nil), c.sources[kind]...)
}

// ScrapeProvider 抓取一个 provider 的全部 Source，并批量 upsert 成功构造的 Supplier。
//
// 返回值：
// - suppliers：成功构造的 Supplier（即使 upsert 失败也返回，便于调用方查看）
// - rr：每个 Source 一条 item 的报告（已 Finalize）
// - err：*UnknownProviderError 或 *UpsertError；Source 级失败不在这里返回
func (c *Coordinator) ScrapeProvider(ctx context.Context, kind domain.ProviderKind) ([]domain.Supplier, domain.RunReport, error) {
	started := time.Now()
	rr := domain.RunReport{StartedAt: started, Items: []domain.ItemResult{}}

	a, ok := c.reg.Get(kind)
	if !ok {
		rr.Items = append(rr.Items, domain.ItemResult{
			Provider:  string(kind),
			Status:    domain.StatusFailed,
			ErrorCode: domain.ErrCodeUnknownProvider,
			ErrorMsg:  fmt.Sprintf("provider %q 未注册", kind),
		})
		rr.FinishedAt = time.Now()
		rr.Finalize()
		return nil, rr, &UnknownProviderError{Kind: string(kind)}
	}

	ctx, span := c.tracer.Start(ctx, "ingest.provider", trace.WithAttributes(
		attribute.String("provider", string(kind)),
	))
	defer span.End()

	srcs := c.sources[kind]
	outcomes := c.scrapeSources(ctx, kind, a, srcs)

	suppliers := make([]domain.Supplier, 0, len(outcomes))
	okIdx := make([]int, 0, len(outcomes))
	for i, o := range outcomes {
		rr.Items = append(rr.Items, o.item)
		if o.supplier != nil {
			suppliers = append(suppliers, *o.supplier)
			okIdx = append(okIdx, i)
		}
	}

	var upErr error
	if len(suppliers) > 0 {
		if err := c.store.UpsertSuppliersByName(ctx, suppliers); err != nil {
			upErr = &UpsertError{Provider: string(kind), Err: err}
			c.log.Error("upsert suppliers failed",
				zap.String("provider", string(kind)),
				zap.Int("suppliers", len(suppliers)),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "upsert failed")
			for _, i := range okIdx {
				rr.Items[i].Status = domain.StatusFailed
				rr.Items[i].ErrorCode = domain.ErrCodeUpsertFailed
				rr.Items[i].ErrorMsg = err.Error()
			}
		} else {
			for _, i := range okIdx {
				rr.Items[i].Upserted = true
			}
		}
	}

	rr.FinishedAt = time.Now()
	rr.Finalize()
	span.SetAttributes(
		attribute.Int("sources", rr.Summary.Sources),
		attribute.Int("failed", rr.Summary.Failed),
		attribute.Int("stores", rr.Summary.Stores),
	)
	c.log.Info("provider scraped",
		zap.String("provider", string(kind)),
		zap.Int("sources", rr.Summary.Sources),
		zap.Int("succeeded", rr.Summary.Succeeded),
		zap.Int("failed", rr.Summary.Failed),
		zap.Int("upserted", rr.Summary.Upserted),
		zap.Duration("took", time.Since(started)),
	)
	c.obs.OnProviderDone(kind, rr, time.Since(started))
	return suppliers, rr, upErr
}

// ScrapeAll 并发抓取全部 provider 并汇总报告。provider 级错误只记日志。
func (c *Coordinator) ScrapeAll(ctx context.Context) domain.RunReport {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "ingest.scrape_all")
	defer span.End()

	rr := domain.RunReport{StartedAt: started, Items: []domain.ItemResult{}}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, kind := range c.Kinds() {
		wg.Add(1)
		go func(kind domain.ProviderKind) {
			defer wg.Done()
			_, prr, err := c.ScrapeProvider(ctx, kind)
			if err != nil {
				c.log.Error("provider run failed", zap.String("provider", string(kind)), zap.Error(err))
			}
			mu.Lock()
			rr.Merge(prr)
			mu.Unlock()
		}(kind)
	}
	wg.Wait()

	rr.FinishedAt = time.Now()
	rr.Finalize()
	span.SetAttributes(
		attribute.Int("sources", rr.Summary.Sources),
		attribute.Int("failed", rr.Summary.Failed),
	)
	c.log.Info("scrape run finished",
		zap.Int("sources", rr.Summary.Sources),
		zap.Int("succeeded", rr.Summary.Succeeded),
		zap.Int("failed", rr.Summary.Failed),
		zap.Int("stores", rr.Summary.Stores),
		zap.Int("upserted", rr.Summary.Upserted),
		zap.Duration("took", time.Since(started)),
	)
	return rr
}

// TriggerResult 是手动/定时触发的确认结果。
type TriggerResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Report  domain.RunReport `json:"report"`
}

// TriggerScrapeAll 同步执行一次 ScrapeAll。无论单个 Source 是否失败，Success 都为 true：
// 部分失败通过告警邮件与日志呈现。
func (c *Coordinator) TriggerScrapeAll(ctx context.Context) TriggerResult {
	rr := c.ScrapeAll(ctx)
	return TriggerResult{
		Success: true,
		Message: fmt.Sprintf("scrape finished: %d sources, %d succeeded, %d failed, %d suppliers upserted",
			rr.Summary.Sources, rr.Summary.Succeeded, rr.Summary.Failed, rr.Summary.Upserted),
		Report: rr,
	}
}

// TriggerScrapeProvider 按名称（大小写不敏感）触发单个 provider。
func (c *Coordinator) TriggerScrapeProvider(ctx context.Context, name string) ([]domain.Supplier, error) {
	kind, err := domain.ParseKind(name)
	if err != nil {
		return nil, &UnknownProviderError{Kind: name}
	}
	suppliers, _, err := c.ScrapeProvider(ctx, kind)
	return suppliers, err
}

type outcome struct {
	supplier *domain.Supplier
	item     domain.ItemResult
}

// scrapeSources 处理一个 provider 的全部 Source，结果顺序与 srcs 一致。
func (c *Coordinator) scrapeSources(ctx context.Context, kind domain.ProviderKind, a provider.Adapter, srcs []domain.Source) []outcome {
	out := make([]outcome, len(srcs))
	workers := c.opts.SourceConcurrency
	if workers > len(srcs) {
		workers = len(srcs)
	}
	if workers <= 1 {
		for i, src := range srcs {
			out[i] = c.scrapeOne(ctx, kind, a, src)
		}
		return out
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// 每个下标只被一个 worker 写入。
				out[i] = c.scrapeOne(ctx, kind, a, srcs[i])
			}
		}()
	}
	for i := range srcs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (c *Coordinator) scrapeOne(ctx context.Context, kind domain.ProviderKind, a provider.Adapter, src domain.Source) outcome {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "ingest.source", trace.WithAttributes(
		attribute.String("provider", string(kind)),
		attribute.String("source", src.Name),
		attribute.String("url", src.URL),
	))
	defer span.End()

	item := domain.ItemResult{
		Provider: string(kind),
		Source:   src.Name,
		URL:      src.URL,
	}

	res, err := c.safeScrape(ctx, a, src)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = errorCode(err)
		item.ErrorMsg = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, item.ErrorCode)
		c.log.Warn("source scrape failed",
			zap.String("provider", string(kind)),
			zap.String("source", src.Name),
			zap.String("url", src.URL),
			zap.String("error_code", item.ErrorCode),
			zap.Error(err),
		)
		c.alert(ctx, src, err)
		c.obs.OnSourceDone(kind, item, time.Since(started))
		return outcome{item: item}
	}

	item.Status = domain.StatusOK
	item.Stores = len(res.Stores)
	item.Cached = res.Cached
	span.SetAttributes(attribute.Int("stores", item.Stores), attribute.Bool("cached", item.Cached))
	c.log.Debug("source scraped",
		zap.String("provider", string(kind)),
		zap.String("source", src.Name),
		zap.Int("stores", item.Stores),
		zap.Bool("cached", item.Cached),
	)

	sup := BuildSupplier(kind, src, res.Stores)
	c.obs.OnSourceDone(kind, item, time.Since(started))
	return outcome{supplier: &sup, item: item}
}

func (c *Coordinator) safeScrape(ctx context.Context, a provider.Adapter, src domain.Source) (res provider.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return c.scraper.Scrape(ctx, a, src, provider.Options{
		RetryCount: c.opts.RetryCount,
		CacheTTL:   c.opts.CacheTTL,
	})
}

// alert 通知管理员。批次被取消导致的失败不是上游问题，不告警。
func (c *Coordinator) alert(ctx context.Context, src domain.Source, err error) {
	if c.notifier == nil {
		return
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}
	var cause any = err
	var pe *PanicError
	if errors.As(err, &pe) {
		cause = pe.Value
	}
	c.notifier.Notify(context.WithoutCancel(ctx), src.Name, cause)
}
