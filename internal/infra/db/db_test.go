package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/giftvault/ingest/internal/domain"
)

func sampleSuppliers() []domain.Supplier {
	return []domain.Supplier{
		{
			Name:      "BuyMe - Fashion",
			Stores:    []domain.Store{{StoreID: "1", Name: "Castro"}},
			Logo:      "https://example.test/buyme.svg",
			FromColor: "#FF3366",
			ToColor:   domain.Darken("#FF3366"),
			CardTypes: []domain.CardType{domain.CardDigital},
		},
		{
			Name:      "LoveCard",
			Stores:    []domain.Store{{StoreID: "a", Name: "Store A"}, {StoreID: "b", Name: "Store B"}},
			FromColor: "#E6007E",
			ToColor:   domain.Darken("#E6007E"),
			CardTypes: []domain.CardType{domain.CardDigital, domain.CardPhysical},
		},
	}
}

func exerciseUpsertByName(t *testing.T, s SupplierStore) {
	t.Helper()
	ctx := context.Background()

	if err := s.UpsertSuppliersByName(ctx, sampleSuppliers()); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	// 同名覆盖：stores/description 整体替换，不产生新行。
	updated := domain.Supplier{
		Name:        "LoveCard",
		Stores:      []domain.Store{{StoreID: "c", Name: "Store C"}},
		Description: "new",
		FromColor:   "#000000",
		ToColor:     "#000000",
	}
	if err := s.UpsertSuppliersByName(ctx, []domain.Supplier{updated}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	got, err := s.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条 supplier，实际 %d：%+v", len(got), got)
	}
	var love *domain.Supplier
	for i := range got {
		if got[i].Name == "LoveCard" {
			love = &got[i]
		}
	}
	if love == nil {
		t.Fatalf("缺少 LoveCard")
	}
	if love.Description != "new" || len(love.Stores) != 1 || love.Stores[0].Name != "Store C" {
		t.Fatalf("同名记录应被整体覆盖：%+v", love)
	}
	if love.CardTypes == nil || len(love.CardTypes) != 0 {
		t.Fatalf("card types 应被覆盖为空列表：%#v", love.CardTypes)
	}

	if err := s.UpsertSuppliersByName(ctx, nil); err != nil {
		t.Fatalf("空批次不应报错：%v", err)
	}
}

func TestSQLStore_SQLiteUpsertByName(t *testing.T) {
	s, err := OpenSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("打开 sqlite 失败：%v", err)
	}
	defer s.Close()

	exerciseUpsertByName(t, s)

	got, err := s.ListSuppliers(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got[0].Name != "BuyMe - Fashion" || got[0].ToColor != domain.Darken("#FF3366") {
		t.Fatalf("按 name 排序/字段读回不符合预期：%+v", got[0])
	}
}

func TestJSONStore_UpsertByName(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "suppliers.json"))
	exerciseUpsertByName(t, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", "x"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestRebind(t *testing.T) {
	got := Rebind("INSERT INTO t (a, b) VALUES (?, ?)")
	if got != "INSERT INTO t (a, b) VALUES ($1, $2)" {
		t.Fatalf("实际 %q", got)
	}
}
