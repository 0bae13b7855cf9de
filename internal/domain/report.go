package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	ErrCodeFetchFailed     = "fetch_failed"
	ErrCodeParseFailed     = "parse_failed"
	ErrCodeUpsertFailed    = "upsert_failed"
	ErrCodeUnknownProvider = "unknown_provider"
	ErrCodeInternal        = "internal_error"
)

// RunReport 是一次抓取批次的对外稳定输出（CLI stdout JSON / 快照文件）。
type RunReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Sources   int `json:"sources"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Stores    int `json:"stores"`
	Upserted  int `json:"upserted"`
}

// ItemResult 记录单个 Source 的结果（成功或失败都要有一条，便于排查部分失败）。
type ItemResult struct {
	Provider string `json:"provider"`
	Source   string `json:"source"`
	URL      string `json:"url"`

	Status    string `json:"status"`
	Stores    int    `json:"stores"`
	Cached    bool   `json:"cached"`
	Upserted  bool   `json:"upserted"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Merge 把 other 的条目并入 r（时间取两者的外包络）。
func (r *RunReport) Merge(other RunReport) {
	if r.StartedAt.IsZero() || (!other.StartedAt.IsZero() && other.StartedAt.Before(r.StartedAt)) {
		r.StartedAt = other.StartedAt
	}
	if other.FinishedAt.After(r.FinishedAt) {
		r.FinishedAt = other.FinishedAt
	}
	r.Items = append(r.Items, other.Items...)
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 provider，再按 source
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.Source < b.Source
	})

	var s ReportSummary
	for _, it := range r.Items {
		s.Sources++
		switch it.Status {
		case StatusOK:
			s.Succeeded++
			s.Stores += it.Stores
		case StatusFailed:
			s.Failed++
		}
		if it.Upserted {
			s.Upserted++
		}
	}
	r.Summary = s
}

// MarshalJSON 保证 items 为 [] 而不是 null。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}
