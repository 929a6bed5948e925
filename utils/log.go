package utils

import (
	"strings"
	"unicode"
)

// SanitizeLogMessage 去掉不可打印字符，避免日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == 10 || r == 9 {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TruncateForLog 截断用户输入，用于日志字段
func TruncateForLog(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return SanitizeLogMessage(string(r[:max])) + "..."
	}
	return SanitizeLogMessage(s)
}
