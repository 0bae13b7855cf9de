package ingest

import (
	"errors"
	"fmt"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/provider"
)

// UnknownProviderError 表示请求的 provider 不存在或未注册。
type UnknownProviderError struct {
	Kind string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("未知 provider：%q", e.Kind)
}

func IsUnknownProvider(err error) bool {
	var e *UnknownProviderError
	return errors.As(err, &e)
}

// UpsertError 表示某个 provider 的 Supplier 批量写入失败；其他 provider 不受影响。
type UpsertError struct {
	Provider string
	Err      error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert suppliers for %s: %v", e.Provider, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }

// PanicError 包装 adapter 内部 panic 的原始值。
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// errorCode 在 provider.ErrorCode 之外识别 Parse 以外的 panic。
func errorCode(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return domain.ErrCodeInternal
	}
	return provider.ErrorCode(err)
}
