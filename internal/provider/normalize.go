package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// UnknownName 是上游缺少名称时的占位。
const UnknownName = "Unknown"

// NewStoreID 为没有上游 id 的 Store 生成唯一 id。
func NewStoreID() string { return uuid.NewString() }

// IDOr 返回 id（去首尾空白）；为空时生成新 id。
func IDOr(id FlexString) string {
	if s := strings.TrimSpace(string(id)); s != "" {
		return s
	}
	return NewStoreID()
}

// FlexString 接受 JSON 中的 string / number / bool / null，统一为字符串。
// 上游对 id 字段的类型并不稳定（同一接口有时给 123，有时给 "123"）。
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '{', '[':
		// 对象/数组不是合法 id，按缺失处理。
		*f = ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*f = FlexString(n.String())
			return nil
		}
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(v))
	}
	return nil
}

// Truthy 按“真值”语义解码任意 JSON 值：
// false / 0 / "" / null 为假，其余（包括对象与数组）为真。
type Truthy bool

func (t *Truthy) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*t = false
		return nil
	}
	switch b[0] {
	case 'n', 'f':
		*t = false
	case 't', '{', '[':
		*t = true
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = s != ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*t = f != 0
	}
	return nil
}

// OptionalArray 保存“可能是数组也可能是别的”的字段：只有 JSON 数组时 Present=true。
// 形状不符不报错，交给 adapter 按“返回空列表”处理。
type OptionalArray[T any] struct {
	Items   []T
	Present bool
}

func (a *OptionalArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		a.Items, a.Present = nil, false
		return nil
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	a.Items, a.Present = items, true
	return nil
}

// DecodeJSON 解码 adapter 的原始 payload。
//
// 返回值：
// - err != nil：不是合法 JSON（解析失败，上层记为 parse_failed）
// - matched=false：合法 JSON 但字段类型与预期不符（形状不符，adapter 返回空列表）
func DecodeJSON(raw []byte, out any) (matched bool, err error) {
	err = json.Unmarshal(raw, out)
	if err == nil {
		return true, nil
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return false, nil
	}
	return false, err
}
