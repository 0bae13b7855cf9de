package maxgiftcard

import (
	"reflect"
	"testing"

	"github.com/giftvault/ingest/internal/domain"
)

var src = domain.Source{Name: "MaxGiftCard", URL: "https://example.test/max.pdf"}

func TestParse_FixedCatalogRegardlessOfInput(t *testing.T) {
	a, err := Provider{}.Parse(src, []byte("%PDF-1.4 anything"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := Provider{}.Parse(src, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(a) != 85 || len(b) != 85 {
		t.Fatalf("期望固定 85 条，实际 %d / %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Fatalf("第 %d 条名称不一致：%q vs %q", i, a[i].Name, b[i].Name)
		}
		if a[i].StoreID == "" || a[i].Image != "" {
			t.Fatalf("第 %d 条不符合预期：%+v", i, a[i])
		}
	}
}

// wantCatalog 是固定输出的逐项快照：任何增删改名都应让测试失败。
var wantCatalog = []string{
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

func TestCatalog_Pinned(t *testing.T) {
	if !reflect.DeepEqual(Catalog, wantCatalog) {
		t.Fatalf("目录与快照不一致：\n实际 %q\n期望 %q", Catalog, wantCatalog)
	}

	stores, err := Provider{}.Parse(src, []byte("%PDF-1.4 other"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	got := make([]string, 0, len(stores))
	for _, s := range stores {
		got = append(got, s.Name)
	}
	if !reflect.DeepEqual(got, wantCatalog) {
		t.Fatalf("Parse 输出与快照不一致：\n实际 %q", got)
	}
}
