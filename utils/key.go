package utils

import "strings"

// MaxKeyLength 投票键与菜品键的最大长度
const MaxKeyLength = 200

// SanitizeKey 将 [A-Za-z0-9_-] 以外的字符替换为下划线，并截断到 MaxKeyLength
func SanitizeKey(key string) string {
	var sb strings.Builder
	n := 0
	for _, r := range key {
		if n >= MaxKeyLength {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
		n++
	}
	return sb.String()
}
