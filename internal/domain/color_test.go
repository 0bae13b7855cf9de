package domain

import "testing"

func TestDarken_Deterministic(t *testing.T) {
	got := Darken("#FFC400")
	if got != "#CC9D00" {
		t.Fatalf("期望 #CC9D00，实际 %q", got)
	}
	for i := 0; i < 10; i++ {
		if again := Darken("#FFC400"); again != got {
			t.Fatalf("第 %d 次调用结果不一致：%q != %q", i, again, got)
		}
	}
}

func TestDarken_ShortAndLowercase(t *testing.T) {
	if got := Darken("fff"); got != "#CCCCCC" {
		t.Fatalf("期望 #CCCCCC，实际 %q", got)
	}
	if got := Darken("#ffc400"); got != "#CC9D00" {
		t.Fatalf("大小写不应影响结果，实际 %q", got)
	}
}

func TestDarken_InvalidPassthrough(t *testing.T) {
	if got := Darken("not-a-color"); got != "not-a-color" {
		t.Fatalf("非法输入应原样返回，实际 %q", got)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" BuyMe ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if k != KindBuyMe {
		t.Fatalf("期望 buyme，实际 %q", k)
	}
	if _, err := ParseKind("nope"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := ParseKind(""); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
