package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 生成主键（uuid v4 字符串）
func NewID() string { return uuid.NewString() }

// UniqueTrimmed 去空白、去重，保持原顺序
func UniqueTrimmed(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeEmail 去空白并转小写，注册/登录/入驻统一口径
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
