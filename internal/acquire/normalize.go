package acquire

import (
	"fmt"
	"regexp"
	"strings"
)

// tickerRe matches a canonical US listing symbol.
var tickerRe = regexp.MustCompile(`^[A-Z0-9-]{1,10}$`)

// classAliases maps squashed multi-class spellings to the hyphenated
// form the provider serves. Screener exports and hand-typed watchlists
// both produce the squashed form.
var classAliases = map[string]string{
	"BRKA": "BRK-A",
	"BRKB": "BRK-B",
	"BFA":  "BF-A",
	"BFB":  "BF-B",
	"HEIA": "HEI-A",
	"LGFA": "LGF-A",
	"LGFB": "LGF-B",
}

// NormalizeTicker canonicalizes a symbol: uppercase, trimmed, dot class
// separators rewritten to hyphens (BRK.B → BRK-B), known squashed
// spellings expanded. Every cache key and checkpoint row uses the
// canonical form, so normalization happens once, here.
// ⭐ SSOT: 티커 정규화는 여기서만
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, ".", "-")
	if alias, ok := classAliases[t]; ok {
		t = alias
	}
	if !tickerRe.MatchString(t) {
		return "", fmt.Errorf("invalid ticker %q", raw)
	}
	return t, nil
}

// NormalizeTickers canonicalizes a list, dropping invalid entries and
// duplicates. First-appearance order is kept so run output stays
// comparable with the input list.
func NormalizeTickers(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t, err := NormalizeTicker(r)
		if err != nil {
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
