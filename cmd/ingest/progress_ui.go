package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/giftvault/ingest/internal/config"
	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/ingest"
)

var _ ingest.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 约束：
// - 只写 stderr（或 fallback 到 stdout 的 TTY），不污染 stdout 的 JSON 输出
// - 回调可能来自多个 provider goroutine，输出按行加锁
// - keepalive：长时间没有 source 完成时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

// Start 打印生效配置，并按 source 总数启动 keepalive。
func (p *progressUI) Start(cfg config.EffectiveConfig, kinds []domain.ProviderKind, total int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = now
	p.total = total

	fmt.Fprintf(p.w, "[%s] ingest run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	if cfg.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", cfg.ConfigPath)
	} else {
		fmt.Fprintln(p.w, "  config: (默认值 + 环境变量)")
	}
	fmt.Fprintf(p.w, "  providers: %s\n", formatKinds(kinds))
	fmt.Fprintf(p.w, "  sources: %d\n", total)
	fmt.Fprintf(p.w, "  retry_count: %d\n", cfg.Scrape.RetryCount)
	fmt.Fprintf(p.w, "  cache: %s ttl=%s\n", cacheName(cfg), cfg.Scrape.CacheTTL)
	fmt.Fprintf(p.w, "  source_concurrency: %d\n", cfg.Scrape.SourceConcurrency)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(cfg.Scrape.ProxyURL))
	fmt.Fprintf(p.w, "  store: %s\n", cfg.Store.Driver)
	fmt.Fprintf(p.w, "  notify: %s\n", onOff(cfg.Notify.AdminEnabled && cfg.Notify.AdminEmail != ""))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	if p.total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnSourceDone(kind domain.ProviderKind, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	switch res.Status {
	case domain.StatusOK:
		p.ok++
		note := ""
		if res.Cached {
			note = " (cache)"
		}
		fmt.Fprintf(p.w, "[%d/%d] %s/%s OK stores=%d%s (%s)\n",
			p.done, p.total, kind, res.Source, res.Stores, note, formatShortDuration(dur),
		)
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s/%s FAIL %s: %s (%s)\n",
			p.done, p.total, kind, res.Source, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnProviderDone(kind domain.ProviderKind, rr domain.RunReport, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s: sources=%d ok=%d fail=%d upserted=%d (%s)\n",
		kind, rr.Summary.Sources, rr.Summary.Succeeded, rr.Summary.Failed, rr.Summary.Upserted, formatShortDuration(dur),
	)
	p.lastPrinted = time.Now()
}

// Stop 停止 keepalive。可重复调用。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatKinds(kinds []domain.ProviderKind) string {
	if len(kinds) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ", ")
}

// formatProxy 隐藏代理地址中的凭据。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
