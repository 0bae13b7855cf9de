package nofshonit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/giftvault/ingest/internal/domain"
)

var src = domain.Source{Name: "Nofshonit", URL: "https://example.test/nofshonit", OrganizationID: "org-7"}

func TestParse_DedupesByStoreName(t *testing.T) {
	raw := []byte(`{"status": true, "data": {"branches": [
  {"businessId": 1, "storeName": "X", "businessLogoFile": "https://cdn/x.png"},
  {"businessId": 2, "storeName": "X"},
  {"businessId": 3, "storeName": "Y", "phone": "050"}
]}}`)
	got, err := Provider{}.Parse(src, raw)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，实际 %d：%+v", len(got), got)
	}
	if got[0].Name != "X" || got[0].StoreID != "1" || got[0].Image != "https://cdn/x.png" {
		t.Fatalf("期望保留首次出现的 X：%+v", got[0])
	}
	if got[1].Name != "Y" || got[1].StoreID != "3" || got[1].Phone != "050" {
		t.Fatalf("Y 不符合预期：%+v", got[1])
	}
}

func TestParse_FalsyStatus(t *testing.T) {
	for _, in := range []string{
		`{"status": false, "data": {"branches": [{"storeName": "X"}]}}`,
		`{"status": 0, "data": {"branches": [{"storeName": "X"}]}}`,
		`{"data": {"branches": [{"storeName": "X"}]}}`,
		`{"status": 1, "data": {"branches": null}}`,
	} {
		got, err := Provider{}.Parse(src, []byte(in))
		if err != nil {
			t.Fatalf("%s 不期望错误：%v", in, err)
		}
		if len(got) != 0 {
			t.Fatalf("%s 期望空列表，实际 %+v", in, got)
		}
	}
}

type headerRecorder struct {
	headers map[string]string
}

func (r *headerRecorder) FetchJSON(_ context.Context, _ string, _ int, h map[string]string) (json.RawMessage, error) {
	r.headers = h
	return json.RawMessage(`{}`), nil
}
func (r *headerRecorder) FetchHTML(context.Context, string, int) (string, error) {
	return "", errors.New("unused")
}
func (r *headerRecorder) FetchPDF(context.Context, string, int) ([]byte, error) {
	return nil, errors.New("unused")
}

func TestFetch_PassesOrganizationHeader(t *testing.T) {
	rec := &headerRecorder{}
	if _, err := (Provider{}).Fetch(context.Background(), src, rec, 3); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.headers[HeaderOrganizationID] != "org-7" {
		t.Fatalf("期望 organizationid=org-7，实际 %v", rec.headers)
	}
}
