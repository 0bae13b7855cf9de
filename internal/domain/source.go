package domain

import (
	"fmt"
	"strings"
)

// ProviderKind 标识一个上游数据源（一个 kind 下可以有多个 Source）。
type ProviderKind string

const (
	KindBuyMe       ProviderKind = "buyme"
	KindLoveCard    ProviderKind = "lovecard"
	KindGoldCard    ProviderKind = "goldcard"
	KindNofshonit   ProviderKind = "nofshonit"
	KindDreamCard   ProviderKind = "dreamcard"
	KindMaxGiftCard ProviderKind = "maxgiftcard"
)

// AllKinds 按固定顺序列出所有已知 provider。
var AllKinds = []ProviderKind{
	KindBuyMe,
	KindLoveCard,
	KindGoldCard,
	KindNofshonit,
	KindDreamCard,
	KindMaxGiftCard,
}

// ParseKind 校验并规范化 provider 名称（大小写、首尾空白不敏感）。
func ParseKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	if k == "" {
		return "", fmt.Errorf("provider 不能为空")
	}
	return "", fmt.Errorf("未知 provider：%q", s)
}

// Source 是一个 provider 下的具体抓取目标（URL + 展示名）。
// 启动时从配置加载，运行期只读。
type Source struct {
	Name string
	URL  string

	// OrganizationID 只对需要 organizationid 请求头的 provider 有意义（Nofshonit）。
	OrganizationID string
}
