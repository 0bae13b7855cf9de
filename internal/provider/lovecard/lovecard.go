package lovecard

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// Marker 是 LoveCard 页面里品牌列表前的固定短语（“即，品牌有：”）。
const Marker = "קרי, המותגים:"

// Provider 解析 LoveCard 的说明页（HTML）。
//
// 约束：
// - 只看第一个包含 Marker 的 <li>；找不到返回空列表
// - 生成的 Store 没有 image
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindLoveCard }

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
		return nil, &providerx.ParseError{Provider: domain.KindLoveCard, URL: src.URL, Err: err}
	}

	text := ""
	doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := s.Text()
		if strings.Contains(t, Marker) {
			text = t
			return false
		}
		return true
	})
	if text == "" {
		return []domain.Store{}, nil
	}

	names := BrandNames(text)
	out := make([]domain.Store, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Store{StoreID: providerx.NewStoreID(), Name: n})
	}
	return out, nil
}

// BrandNames 从包含 Marker 的文本中提取品牌名。
//
// 规则：
// - 取 Marker 之后的文本，到第一个“未配对”的 ) 为止（列表本身常被括号包住）
// - 按括号外的逗号切分；每个片段在第一个 ( 处截断（去掉括号注释）
// - 去首尾空白、丢弃空串、按完全相等去重（保留首次出现顺序）
func BrandNames(text string) []string {
	i := strings.Index(text, Marker)
	if i < 0 {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 16)
	for _, tok := range splitTopLevel(text[i+len(Marker):]) {
		if j := strings.Index(tok, "("); j >= 0 {
			tok = tok[:j]
		}
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// splitTopLevel 按括号外的逗号切分，遇到未配对的 ) 即结束。
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return append(parts, s[start:i])
			}
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
