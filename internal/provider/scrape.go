package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/infra/cache"
)

// Options 是单次 Scrape 的可调项（来自配置，不硬编码）。
type Options struct {
	RetryCount int
	CacheTTL   time.Duration
}

// Result 是一次 Scrape 的产出。Cached=true 表示直接命中缓存（未抓取、未解析）。
type Result struct {
	Stores []domain.Store
	Cached bool
}

// Scraper 把“缓存优先 → 抓取 → 解析 → 回写缓存”固化为所有 adapter 共用的流程。
type Scraper struct {
	fetcher Fetcher
	cache   cache.Cache
	log     *zap.Logger
}

func NewScraper(f Fetcher, c cache.Cache, log *zap.Logger) *Scraper {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{fetcher: f, cache: c, log: log}
}

// Scrape 抓取一个 Source 并返回规范化后的 Store 列表。
//
// 约束：
// - 缓存命中直接返回，跳过抓取与解析
// - 解析成功（包括空列表）一定回写缓存；抓取/解析失败不写缓存
// - 缓存后端自身的错误只记日志：读失败按未命中处理，写失败不影响返回值
func (s *Scraper) Scrape(ctx context.Context, a Adapter, src domain.Source, opts Options) (Result, error) {
	if a == nil {
		return Result{}, fmt.Errorf("adapter 不能为空")
	}
	kind := a.Kind()

	stores, ok, cerr := s.cache.Get(ctx, src.URL)
	if cerr != nil {
		s.log.Warn("cache get failed", zap.String("url", src.URL), zap.Error(cerr))
	}
	if ok {
		return Result{Stores: stores, Cached: true}, nil
	}

	raw, ferr := a.Fetch(ctx, src, s.fetcher, opts.RetryCount)
	if ferr != nil {
		return Result{}, &Error{Provider: kind, Source: src.Name, URL: src.URL, Stage: StageFetch, Err: ferr}
	}

	stores, perr := safeParse(a, src, raw)
	if perr != nil {
		return Result{}, &Error{Provider: kind, Source: src.Name, URL: src.URL, Stage: StageParse, Err: perr}
	}
	if stores == nil {
		stores = []domain.Store{}
	}

	if err := s.cache.Put(ctx, src.URL, stores, opts.CacheTTL); err != nil {
		s.log.Warn("cache put failed", zap.String("url", src.URL), zap.Error(err))
	}
	return Result{Stores: stores}, nil
}

func safeParse(a Adapter, src domain.Source, raw []byte) (stores []domain.Store, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic while parsing: %v", v)
		}
	}()
	return a.Parse(src, raw)
}
