package provider

import (
	"errors"
	"fmt"

	"github.com/giftvault/ingest/internal/domain"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是 provider 阶段的可追溯错误。
// Stage=fetch 时 Err 通常是 *httpx.FetchExhaustedError；Stage=parse 即解析错误（ParseError）。
type Error struct {
	Provider domain.ProviderKind
	Source   string
	URL      string
	Stage    string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s source=%q stage=%s: %v", e.Provider, e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode 把错误归类为 report 中的 error_code。
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Stage == StageParse {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}

// IsParse 判断是否为解析阶段错误。
func IsParse(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Stage == StageParse
}

// ParseError 表示 payload 已取到，但无法解码（非法 JSON / 非法 HTML）。
// 形状不符（字段缺失、类型不对）不是 ParseError：各 adapter 按规则返回空列表。
type ParseError struct {
	Provider domain.ProviderKind
	URL      string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Provider, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
