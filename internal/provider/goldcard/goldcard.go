package goldcard

import (
	"context"
	"errors"
	"strings"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// ImageBase 是 icon.url（站内相对路径）的前缀。
const ImageBase = "https://www.shufersal.co.il"

// Provider 解析 TheGoldCard（Shufersal）的商户网络接口（JSON）。
//
// 约束：
// - isSucceeded 不是 true，或 content.data.networkingCubes 不是数组：返回空列表
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindGoldCard }

func (Provider) Fetch(ctx context.Context, src domain.Source, f providerx.Fetcher, retryCount int) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	return f.FetchJSON(ctx, src.URL, retryCount, nil)
}

type payload struct {
	IsSucceeded bool `json:"isSucceeded"`
	Content     struct {
		Data struct {
			NetworkingCubes providerx.OptionalArray[cube] `json:"networkingCubes"`
		} `json:"data"`
	} `json:"content"`
}

type cube struct {
	ID                    providerx.FlexString `json:"id"`
	Name                  providerx.FlexString `json:"name"`
	NameInAnotherLanguage providerx.FlexString `json:"nameInAnotherLanguage"`
	Icon                  *struct {
		URL providerx.FlexString `json:"url"`
	} `json:"icon"`
	Address providerx.FlexString `json:"address"`
	Phone   providerx.FlexString `json:"phone"`
	// 上游字段名就是拼错的。
	WebsiteLinks []struct {
		URL providerx.FlexString `json:"url"`
	} `json:"websilteLink"`
}

func (Provider) Parse(src domain.Source, raw []byte) ([]domain.Store, error) {
	var p payload
	matched, err := providerx.DecodeJSON(raw, &p)
	if err != nil {
		return nil, &providerx.ParseError{Provider: domain.KindGoldCard, URL: src.URL, Err: err}
	}
	cubes := p.Content.Data.NetworkingCubes
	if !matched || !p.IsSucceeded || !cubes.Present {
		return []domain.Store{}, nil
	}

	out := make([]domain.Store, 0, len(cubes.Items))
	for _, c := range cubes.Items {
		st := domain.Store{
			StoreID: providerx.IDOr(c.ID),
			Name:    displayName(string(c.Name), string(c.NameInAnotherLanguage)),
			Address: string(c.Address),
			Phone:   string(c.Phone),
		}
		if c.Icon != nil && c.Icon.URL != "" {
			st.Image = ImageBase + string(c.Icon.URL)
		}
		if len(c.WebsiteLinks) > 0 {
			st.Website = string(c.WebsiteLinks[0].URL)
		}
		out = append(out, st)
	}
	return out, nil
}

// displayName 拼接“本地名 - 外文名”；两者都为空时返回 Unknown。
func displayName(name, other string) string {
	name, other = strings.TrimSpace(name), strings.TrimSpace(other)
	switch {
	case name != "" && other != "":
		return name + " - " + other
	case name != "":
		return name
	case other != "":
		return other
	default:
		return providerx.UnknownName
	}
}
