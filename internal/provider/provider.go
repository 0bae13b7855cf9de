package provider

import (
	"context"
	"encoding/json"

	"github.com/giftvault/ingest/internal/domain"
)

// Fetcher 是 adapter 看到的抓取层（由 httpx.Client 实现）。
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, retryCount int, extraHeaders map[string]string) (json.RawMessage, error)
	FetchHTML(ctx context.Context, url string, retryCount int) (string, error)
	FetchPDF(ctx context.Context, url string, retryCount int) ([]byte, error)
}

// Adapter 把“站点变化”限制在各自的 provider 包内部；核心流程只依赖统一接口与 domain.Store。
//
// 约束：
// - Fetch 不做缓存、不做重试（缓存由 Scraper 统一实现，重试由 Fetcher 实现）
// - Parse 必须是纯函数：相同输入 => 相同输出（生成的 store_id 除外）
// - 形状不符时按 provider 规则返回空列表；只有真正无法解码才返回 error
type Adapter interface {
	Kind() domain.ProviderKind
	Fetch(ctx context.Context, src domain.Source, f Fetcher, retryCount int) ([]byte, error)
	Parse(src domain.Source, raw []byte) ([]domain.Store, error)
}
