package buyme

import (
	"context"
	"errors"
	"strings"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// ImageBase 是 BuyMe logo 文件的前缀；接口只返回文件名。
const ImageBase = "https://buyme.co.il/files/"

// Provider 解析 BuyMe 分类接口（JSON）。
//
// 约束：
// - brands 缺失或不是数组：返回空列表（不是错误）
// - 不做名称去重：同一分类下 BuyMe 自己保证唯一
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindBuyMe }

func (Provider) Fetch(ctx context.Context, src domain.Source, f providerx.Fetcher, retryCount int) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	return f.FetchJSON(ctx, src.URL, retryCount, nil)
}

type payload struct {
	Brands providerx.OptionalArray[brand] `json:"brands"`
}

type brand struct {
	ID            providerx.FlexString `json:"id"`
	Title         providerx.FlexString `json:"title"`
	Logo          providerx.FlexString `json:"logo"`
	GoogleMapAddr providerx.FlexString `json:"googleMapAddr"`
	SmallPrint    providerx.FlexString `json:"smallPrint"`
	SiteLink      providerx.FlexString `json:"siteLink"`
	Phone         providerx.FlexString `json:"phone"`
}

func (Provider) Parse(src domain.Source, raw []byte) ([]domain.Store, error) {
	var p payload
	matched, err := providerx.DecodeJSON(raw, &p)
	if err != nil {
		return nil, &providerx.ParseError{Provider: domain.KindBuyMe, URL: src.URL, Err: err}
	}
	if !matched || !p.Brands.Present {
		return []domain.Store{}, nil
	}

	out := make([]domain.Store, 0, len(p.Brands.Items))
	for _, b := range p.Brands.Items {
		name := strings.TrimSpace(string(b.Title))
		if name == "" {
			name = providerx.UnknownName
		}
		st := domain.Store{
			StoreID:     providerx.IDOr(b.ID),
			Name:        name,
			Address:     string(b.GoogleMapAddr),
			Description: string(b.SmallPrint),
			Website:     string(b.SiteLink),
			Phone:       string(b.Phone),
		}
		if b.Logo != "" {
			st.Image = ImageBase + string(b.Logo)
		}
		out = append(out, st)
	}
	return out, nil
}
