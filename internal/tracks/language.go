// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tracks

import (
	"strings"

	"golang.org/x/text/language"
)

// SameLanguage reports whether two language tags name the same base language.
// ISO 639-1 and 639-2 forms compare equal ("es" == "spa").
func SameLanguage(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return languagePrefix(a, b)
	}
	ba, confA := ta.Base()
	bb, confB := tb.Base()
	if confA == language.No || confB == language.No {
		return languagePrefix(a, b)
	}
	return ba == bb
}

// languagePrefix is the fallback for tags x/text cannot parse (e.g. "en_US").
func languagePrefix(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	n := min(len(a), len(b), 2)
	if n < 2 {
		return false
	}
	return a[:n] == b[:n]
}
