package httpx

import (
	"errors"
	"fmt"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码（单次尝试级别）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// BodyTooLargeError 表示响应体超过 MaxBodyBytes（单次尝试级别）。
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeds %d bytes", e.Limit)
}

// FetchExhaustedError 表示某个 URL 的全部尝试都失败了。
// Err 是最后一次尝试的错误。
type FetchExhaustedError struct {
	URL      string
	Kind     Kind
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s %s failed after %d attempt(s): %v", e.Kind, e.URL, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// IsFetchExhausted 判断 err 链上是否有 *FetchExhaustedError。
func IsFetchExhausted(err error) bool {
	var e *FetchExhaustedError
	return errors.As(err, &e)
}
