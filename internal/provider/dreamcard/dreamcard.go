package dreamcard

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// Provider 解析 DreamCard 的商户列表页（HTML）。
//
// 约束：
// - 每个 <li> 最多产出一个 Store；h2.s_title 为空的 <li> 跳过
// - image 取第一个 <img> 的 src，缺失时为空串
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindDreamCard }

func (Provider) Fetch(ctx context.Context, src domain.Source, f providerx.Fetcher, retryCount int) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	html, err := f.FetchHTML(ctx, src.URL, retryCount)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (Provider) Parse(src domain.Source, raw []byte) ([]domain.Store, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, &providerx.ParseError{Provider: domain.KindDreamCard, URL: src.URL, Err: err}
	}

	out := make([]domain.Store, 0, 32)
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find("h2.s_title").First().Text())
		if name == "" {
			return
		}
		img, _ := s.Find("img").First().Attr("src")
		out = append(out, domain.Store{
			StoreID: providerx.NewStoreID(),
			Name:    name,
			Image:   strings.TrimSpace(img),
		})
	})
	return out, nil
}
