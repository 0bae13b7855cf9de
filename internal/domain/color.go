package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DarkenFactor 是 toColor 相对 fromColor 的固定变暗比例。
const DarkenFactor = 0.2

// Darken 把 "#RRGGBB"（或 "RRGGBB"/"#RGB"）每个通道按 DarkenFactor 变暗，输出大写 "#RRGGBB"。
// 纯函数：相同输入永远得到相同输出。无法解析时原样返回输入。
func Darken(hex string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return hex
	}
	k := 1 - DarkenFactor
	return fmt.Sprintf("#%02X%02X%02X", scale(r, k), scale(g, k), scale(b, k))
}

func scale(c uint8, k float64) uint8 {
	v := math.Round(float64(c) * k)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func parseHex(s string) (r, g, b uint8, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), true
}
