package http

import (
	"strconv"
	"strings"

	"bilancio/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func cacheKey(p core.Period) string {
	return strconv.Itoa(p.Year) + "-" + strconv.Itoa(p.Month)
}
