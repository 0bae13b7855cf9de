package maxgiftcard

import (
	"context"
	"errors"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

// Provider 是 MaxGiftCard 的“静态目录”实现。
//
// 约束：
// - 输出与 PDF 内容无关：总是 Catalog 中的全部品牌（生成 store_id，image 为空）
// - Fetch 仍会下载 PDF，下载失败照常记为抓取失败
type Provider struct{}

func (Provider) Kind() domain.ProviderKind { return domain.KindMaxGiftCard }

func (Provider) Fetch(ctx context.Context, src domain.Source, f providerx.Fetcher, retryCount int) ([]byte, error) {
	// TODO: Parse 不使用这份 PDF；改为真正解析需要业务确认（输出会变），确认前可去掉这次下载。
	if f == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	return f.FetchPDF(ctx, src.URL, retryCount)
}

func (Provider) Parse(_ domain.Source, _ []byte) ([]domain.Store, error) {
	out := make([]domain.Store, 0, len(Catalog))
	for _, name := range Catalog {
		out = append(out, domain.Store{StoreID: providerx.NewStoreID(), Name: name})
	}
	return out, nil
}

// Catalog 是 MaxGiftCard 接受的品牌列表（固定输出，改动需同步更新测试）。
var Catalog = []string{
	"ACE",
	"Adidas",
	"Aldo",
	"American Eagle",
	"Ashdod Port",
	"Bagir",
	"Bershka",
	"Billabong",
	"Blue Square",
	"Bug",
	"Burgerim",
	"Castro",
	"Crocs",
	"Delta",
	"Delicatessen",
	"Dr. Shapiro",
	"Electra",
	"Fox",
	"Fox Home",
	"Foot Locker",
	"Gali",
	"Golf",
	"Golf Kids",
	"Golbary",
	"Hamashbir",
	"H&M",
	"Honigman",
	"Hoodies",
	"Ikea",
	"Intima",
	"Irit",
	"Istore",
	"Jumbo",
	"KSP",
	"Kitan",
	"Lacoste",
	"Laline",
	"Lee Cooper",
	"Lego",
	"Levi's",
	"Mango",
	"Massimo Dutti",
	"McDonald's",
	"Mega Sport",
	"Michal Negrin",
	"Nautica",
	"New Balance",
	"Next",
	"Nike",
	"Office Depot",
	"Optica Halperin",
	"Oysho",
	"Pandora",
	"Penguin",
	"Pull&Bear",
	"Puma",
	"Renuar",
	"Rami Levy",
	"Reebok",
	"Sabon",
	"Samsonite",
	"Shilav",
	"Shufersal",
	"Skechers",
	"Sport Lee",
	"Steve Madden",
	"Story",
	"Stradivarius",
	"Super-Pharm",
	"Swatch",
	"Tamnoon",
	"Terminal X",
	"The Children's Place",
	"Timberland",
	"Toys R Us",
	"Tommy Hilfiger",
	"Twentyfourseven",
	"Under Armour",
	"Urbanica",
	"Vans",
	"Victoria's Secret",
	"Yes Planet",
	"Yanga",
	"Zara",
	"Zara Home",
}
