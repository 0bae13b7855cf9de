package ingest

import (
	"time"

	"github.com/giftvault/ingest/internal/domain"
)

// Observer 把抓取进度从 Coordinator 中解耦出来（CLI 用它打印进度）。
//
// 约束：
// - Coordinator 只发事件，不做任何输出
// - 实现必须并发安全：ScrapeAll 下事件来自多个 goroutine
type Observer interface {
	// OnSourceDone 在单个 Source 完成（成功或失败）时调用。
	OnSourceDone(kind domain.ProviderKind, item domain.ItemResult, dur time.Duration)
	// OnProviderDone 在某个 provider 的全部 Source 与 upsert 完成后调用。
	OnProviderDone(kind domain.ProviderKind, rr domain.RunReport, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnSourceDone(domain.ProviderKind, domain.ItemResult, time.Duration)   {}
func (nopObserver) OnProviderDone(domain.ProviderKind, domain.RunReport, time.Duration) {}
