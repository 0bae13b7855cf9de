package ingest

import (
	"strings"

	"github.com/giftvault/ingest/internal/config"
	"github.com/giftvault/ingest/internal/domain"
)

// Branding 是某个 provider 固定的展示信息（不随抓取结果变化）。
type Branding struct {
	Description string
	Logo        string
	FromColor   string
	CardTypes   []domain.CardType
}

var brandings = map[domain.ProviderKind]Branding{
	domain.KindBuyMe: {
		Description: "BuyMe gift cards, redeemable at hundreds of brands across Israel.",
		Logo:        "https://buyme.co.il/static/images/buyme-logo.svg",
		FromColor:   "#F0247A",
		CardTypes:   []domain.CardType{domain.CardDigital},
	},
	domain.KindLoveCard: {
		Description: "LoveCard multi-brand gift card for fashion, home and lifestyle chains.",
		Logo:        "https://www.lovecard.co.il/images/logo.png",
		FromColor:   "#E6007E",
		CardTypes:   []domain.CardType{domain.CardDigital, domain.CardPhysical},
	},
	domain.KindGoldCard: {
		Description: "TheGoldCard by Shufersal, accepted at the Shufersal networking partners.",
		Logo:        "https://www.shufersal.co.il/online/_ui/responsive/theme-shufersal/images/goldcard-logo.png",
		FromColor:   "#FFC400",
		CardTypes:   []domain.CardType{domain.CardPhysical, domain.CardDigital},
	},
	domain.KindNofshonit: {
		Description: "Nofshonit leisure and shopping gift card.",
		Logo:        "https://www.nofshonit.co.il/assets/images/logo.svg",
		FromColor:   "#00A3E0",
		CardTypes:   []domain.CardType{domain.CardDigital},
	},
	domain.KindDreamCard: {
		Description: "DreamCard gift card for leading retail chains.",
		Logo:        "https://www.dreamcard.co.il/images/logo.png",
		FromColor:   "#6A1B9A",
		CardTypes:   []domain.CardType{domain.CardDigital, domain.CardPhysical},
	},
	domain.KindMaxGiftCard: {
		Description: "Max gift card, accepted at the Max partner brands.",
		Logo:        "https://www.max.co.il/images/max-logo.svg",
		FromColor:   "#00B2A9",
		CardTypes:   []domain.CardType{domain.CardPhysical, domain.CardDigital},
	},
}

// BrandingFor 返回 provider 的展示信息（CardTypes 为副本）。
func BrandingFor(kind domain.ProviderKind) (Branding, bool) {
	b, ok := brandings[kind]
	if !ok {
		return Branding{}, false
	}
	b.CardTypes = append([]domain.CardType(nil), b.CardTypes...)
	return b, true
}

// BuildSupplier 用 provider 的固定展示信息与本次抓取到的 stores 构造 Supplier。
// toColor 总是由 fromColor 推导，不单独配置。
func BuildSupplier(kind domain.ProviderKind, src domain.Source, stores []domain.Store) domain.Supplier {
	b, _ := BrandingFor(kind)
	if stores == nil {
		stores = []domain.Store{}
	}
	if b.CardTypes == nil {
		b.CardTypes = []domain.CardType{}
	}
	return domain.Supplier{
		Name:        src.Name,
		Stores:      stores,
		Logo:        b.Logo,
		Description: b.Description,
		FromColor:   b.FromColor,
		ToColor:     domain.Darken(b.FromColor),
		CardTypes:   b.CardTypes,
	}
}

const buyMeAPI = "https://buyme.co.il/api/v2/categories/"

var buyMeCategories = []struct{ name, id string }{
	{"Fashion", "1"},
	{"Restaurants", "2"},
	{"Home & Design", "3"},
	{"Beauty & Care", "4"},
	{"Sports", "5"},
	{"Kids & Toys", "6"},
	{"Electronics", "7"},
	{"Vacations", "8"},
	{"Books & Culture", "9"},
	{"Spa", "10"},
	{"Supermarkets", "11"},
	{"Jewelry", "12"},
}

// DefaultSources 是未在配置中覆盖时每个 provider 的抓取目标。
func DefaultSources(kind domain.ProviderKind) []domain.Source {
	switch kind {
	case domain.KindBuyMe:
		out := make([]domain.Source, 0, len(buyMeCategories))
		for _, c := range buyMeCategories {
			out = append(out, domain.Source{
				Name: "BuyMe - " + c.name,
				URL:  buyMeAPI + c.id + "/brands",
			})
		}
		return out
	case domain.KindLoveCard:
		return []domain.Source{{Name: "LoveCard", URL: "https://www.lovecard.co.il/faq"}}
	case domain.KindGoldCard:
		return []domain.Source{{Name: "TheGoldCard", URL: "https://www.shufersal.co.il/online/he/networking/cubes"}}
	case domain.KindNofshonit:
		return []domain.Source{{Name: "Nofshonit", URL: "https://api.nofshonit.co.il/api/branches"}}
	case domain.KindDreamCard:
		return []domain.Source{{Name: "DreamCard", URL: "https://www.dreamcard.co.il/stores"}}
	case domain.KindMaxGiftCard:
		return []domain.Source{{Name: "MaxGiftCard", URL: "https://www.max.co.il/media/giftcard/stores.pdf"}}
	default:
		return nil
	}
}

// ResolveSources 合并配置覆盖与内置默认源。
//
// 规则：
// - disabled 的 provider 不出现在结果中
// - 配置了 sources 则完全替换默认源
// - organization_id 附加到该 provider 的每个 Source 上
func ResolveSources(providers map[domain.ProviderKind]config.ProviderConfig) map[domain.ProviderKind][]domain.Source {
	out := make(map[domain.ProviderKind][]domain.Source, len(domain.AllKinds))
	for _, kind := range domain.AllKinds {
		pc := providers[kind]
		if pc.Disabled {
			continue
		}
		var srcs []domain.Source
		if len(pc.Sources) > 0 {
			srcs = make([]domain.Source, 0, len(pc.Sources))
			for _, s := range pc.Sources {
				srcs = append(srcs, domain.Source{Name: strings.TrimSpace(s.Name), URL: strings.TrimSpace(s.URL)})
			}
		} else {
			srcs = DefaultSources(kind)
		}
		if org := strings.TrimSpace(pc.OrganizationID); org != "" {
			for i := range srcs {
				srcs[i].OrganizationID = org
			}
		}
		out[kind] = srcs
	}
	return out
}
