package utils

import (
	"regexp"
	"strings"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskKey hides all but the last four characters of a credential so it can
// appear in logs. Short values are masked entirely.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
