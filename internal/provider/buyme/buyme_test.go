package buyme

import (
	"reflect"
	"testing"

	"github.com/giftvault/ingest/internal/domain"
	providerx "github.com/giftvault/ingest/internal/provider"
)

var src = domain.Source{Name: "BuyMe - Fashion", URL: "https://example.test/buyme/fashion"}

func TestParse_Normalizes(t *testing.T) {
	raw := []byte(`{"brands":[{"id":"x1","title":" Cafe Joe ","logo":"abc.jpg","siteLink":"https://cafejoe.co.il"}]}`)
	got, err := Provider{}.Parse(src, raw)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []domain.Store{{
		StoreID: "x1",
		Name:    "Cafe Joe",
		Image:   "https://buyme.co.il/files/abc.jpg",
		Website: "https://cafejoe.co.il",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("期望 %+v，实际 %+v", want, got)
	}
}

func TestParse_MissingFields(t *testing.T) {
	raw := []byte(`{"brands":[{"id":17,"phone":"03-1234567","googleMapAddr":"Dizengoff 50"}]}`)
	got, err := Provider{}.Parse(src, raw)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 条，实际 %d", len(got))
	}
	s := got[0]
	if s.StoreID != "17" || s.Name != providerx.UnknownName || s.Image != "" {
		t.Fatalf("缺省字段处理不符合预期：%+v", s)
	}
	if s.Phone != "03-1234567" || s.Address != "Dizengoff 50" {
		t.Fatalf("字段映射不符合预期：%+v", s)
	}
}

func TestParse_GeneratesIDWhenMissing(t *testing.T) {
	got, err := Provider{}.Parse(src, []byte(`{"brands":[{"title":"A"},{"title":"B"}]}`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got[0].StoreID == "" || got[0].StoreID == got[1].StoreID {
		t.Fatalf("期望生成唯一 id：%q %q", got[0].StoreID, got[1].StoreID)
	}
}

func TestParse_EmptyShapes(t *testing.T) {
	for _, in := range []string{`{}`, `{"brands":null}`, `{"brands":"x"}`, `[]`, `{"brands":{"a":1}}`} {
		got, err := Provider{}.Parse(src, []byte(in))
		if err != nil {
			t.Fatalf("%s 不期望错误：%v", in, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("%s 期望空列表，实际 %#v", in, got)
		}
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Provider{}.Parse(src, []byte(`<html>`))
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
