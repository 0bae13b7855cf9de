package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 2*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 2*3600)),
		Items: []ItemResult{
			{Provider: "lovecard", Source: "LoveCard", Status: StatusFailed, ErrorCode: ErrCodeFetchFailed},
			{Provider: "buyme", Source: "BuyMe - Fashion", Status: StatusOK, Stores: 3, Upserted: true},
			{Provider: "buyme", Source: "BuyMe - Chef", Status: StatusOK, Stores: 2, Upserted: true},
		},
	}

	r.Finalize()

	if r.Items[0].Source != "BuyMe - Chef" || r.Items[1].Source != "BuyMe - Fashion" || r.Items[2].Provider != "lovecard" {
		t.Fatalf("items 排序不符合契约：%+v", r.Items)
	}
	want := ReportSummary{Sources: 3, Succeeded: 2, Failed: 1, Stores: 5, Upserted: 2}
	if r.Summary != want {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T08:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_EmptyItemsMarshalAsArray(t *testing.T) {
	b, err := json.Marshal(RunReport{})
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("期望 items=[]，实际：%s", string(b))
	}
}

func TestRunReport_Merge(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := RunReport{StartedAt: t0.Add(time.Second), FinishedAt: t0.Add(2 * time.Second), Items: []ItemResult{{Provider: "a"}}}
	b := RunReport{StartedAt: t0, FinishedAt: t0.Add(5 * time.Second), Items: []ItemResult{{Provider: "b"}}}

	a.Merge(b)
	if !a.StartedAt.Equal(t0) || !a.FinishedAt.Equal(t0.Add(5*time.Second)) {
		t.Fatalf("时间外包络不正确：%v - %v", a.StartedAt, a.FinishedAt)
	}
	if len(a.Items) != 2 {
		t.Fatalf("期望 2 条 items，实际 %d", len(a.Items))
	}
}
