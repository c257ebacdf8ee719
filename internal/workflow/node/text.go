package node

import (
	"strings"
	"unicode/utf8"
)

// NormalizeName 规范化候选名称用于按名合并：去首尾空白并统一小写。
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}
