package provider

import (
	"encoding/json"
	"testing"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a":123,"b":"x1","c":null,"d":{"k":1}}`), &v); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if v.A != "123" || v.B != "x1" || v.C != "" || v.D != "" {
		t.Fatalf("解码结果不符合预期：%+v", v)
	}
}

func TestTruthy(t *testing.T) {
	cases := map[string]bool{
		`true`: true, `false`: false, `null`: false,
		`1`: true, `0`: false, `""`: false, `"ok"`: true,
		`{}`: true, `[]`: true,
	}
	for in, want := range cases {
		var v Truthy
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("%s 不期望错误：%v", in, err)
		}
		if bool(v) != want {
			t.Fatalf("%s 期望 %v，实际 %v", in, want, v)
		}
	}
}

func TestOptionalArray(t *testing.T) {
	var v struct {
		L OptionalArray[int] `json:"l"`
	}
	if err := json.Unmarshal([]byte(`{"l":"nope"}`), &v); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if v.L.Present {
		t.Fatalf("非数组不应 Present")
	}
	if err := json.Unmarshal([]byte(`{"l":[1,2]}`), &v); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !v.L.Present || len(v.L.Items) != 2 {
		t.Fatalf("期望数组 Present，实际 %+v", v.L)
	}
}

func TestDecodeJSON_ShapeMismatchVsSyntax(t *testing.T) {
	var obj struct{}
	matched, err := DecodeJSON([]byte(`[1,2]`), &obj)
	if err != nil || matched {
		t.Fatalf("顶层类型不符应 matched=false 且无错误，实际 matched=%v err=%v", matched, err)
	}
	if _, err := DecodeJSON([]byte(`{`), &obj); err == nil {
		t.Fatalf("非法 JSON 应返回错误")
	}
}

func TestIDOr(t *testing.T) {
	if got := IDOr(" x1 "); got != "x1" {
		t.Fatalf("期望 x1，实际 %q", got)
	}
	a, b := IDOr(""), IDOr("")
	if a == "" || b == "" || a == b {
		t.Fatalf("缺失 id 应生成唯一非空 id：%q %q", a, b)
	}
}
