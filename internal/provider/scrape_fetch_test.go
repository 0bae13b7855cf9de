package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/infra/cache"
	"github.com/giftvault/ingest/internal/infra/httpx"
)

// htmlAdapter 通过真实的 Fetcher 抓取 HTML。
type htmlAdapter struct{ parseCalls int }

func (*htmlAdapter) Kind() domain.ProviderKind { return domain.KindDreamCard }

func (*htmlAdapter) Fetch(ctx context.Context, src domain.Source, f Fetcher, retryCount int) ([]byte, error) {
	html, err := f.FetchHTML(ctx, src.URL, retryCount)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (a *htmlAdapter) Parse(src domain.Source, raw []byte) ([]domain.Store, error) {
	a.parseCalls++
	return []domain.Store{{StoreID: "1", Name: "A"}}, nil
}

func TestScrape_RetryExhaustedNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := httpx.NewClient(httpx.Options{UserAgents: httpx.FixedUA("test-agent")})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	mem := cache.NewMemory()
	s := NewScraper(client, mem, nil)
	a := &htmlAdapter{}
	src := domain.Source{Name: "Dream Card", URL: srv.URL}

	_, err = s.Scrape(context.Background(), a, src, Options{RetryCount: 3, CacheTTL: time.Minute})
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	var fe *httpx.FetchExhaustedError
	if !errors.As(err, &fe) {
		t.Fatalf("期望 *httpx.FetchExhaustedError，实际 %T: %v", err, err)
	}
	if fe.Attempts != 3 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("期望 3 次尝试，实际 attempts=%d calls=%d", fe.Attempts, calls)
	}
	if ErrorCode(err) != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 fetch_failed，实际 %q", ErrorCode(err))
	}
	if a.parseCalls != 0 {
		t.Fatalf("抓取失败不应解析")
	}
	if mem.Len() != 0 {
		t.Fatalf("抓取失败不应写缓存，实际 %d 条", mem.Len())
	}
}
