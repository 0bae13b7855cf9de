package nofshonit

import (
	"context"
	"errors"
	"strings"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// HeaderOrganizationID 是 Nofshonit 接口要求的组织标识请求头。
const HeaderOrganizationID = "organizationid"

// Provider 解析 Nofshonit 的门店接口（JSON）。
//
// 约束：
// - status 为假值，或 data.branches 不是数组：返回空列表
// - 同一次解析内按 storeName 去重，先出现的保留
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindNofshonit }

func (Provider) Fetch(ctx context.Context, src domain.Source, f providerx.Fetcher, retryCount int) ([]byte, error) {
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	var headers map[string]string
	if id := strings.TrimSpace(src.OrganizationID); id != "" {
		headers = map[string]string{HeaderOrganizationID: id}
	}
	return f.FetchJSON(ctx, src.URL, retryCount, headers)
}

type payload struct {
	Status providerx.Truthy `json:"status"`
	Data   struct {
		Branches providerx.OptionalArray[branch] `json:"branches"`
	} `json:"data"`
}

type branch struct {
	BusinessID       providerx.FlexString `json:"businessId"`
	StoreName        providerx.FlexString `json:"storeName"`
	BusinessLogoFile providerx.FlexString `json:"businessLogoFile"`
	Phone            providerx.FlexString `json:"phone"`
}

func (Provider) Parse(src domain.Source, raw []byte) ([]domain.Store, error) {
	var p payload
	matched, err := providerx.DecodeJSON(raw, &p)
	if err != nil {
		return nil, &providerx.ParseError{Provider: domain.KindNofshonit, URL: src.URL, Err: err}
	}
	branches := p.Data.Branches
	if !matched || !bool(p.Status) || !branches.Present {
		return []domain.Store{}, nil
	}

	seen := make(map[string]struct{}, len(branches.Items))
	out := make([]domain.Store, 0, len(branches.Items))
	for _, b := range branches.Items {
		name := string(b.StoreName)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if name == "" {
			name = providerx.UnknownName
		}
		out = append(out, domain.Store{
			StoreID: providerx.IDOr(b.BusinessID),
			Name:    name,
			Image:   string(b.BusinessLogoFile),
			Phone:   string(b.Phone),
		})
	}
	return out, nil
}
