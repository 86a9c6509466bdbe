package tree

import (
	"strings"
	"unicode"

	"github.com/ac7x/lin-llc-sub001/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower folds s with a fresh Caser; Casers carry state and must not be
// shared between goroutines.
func lower(s string) string { return cases.Lower(language.Und).String(s) }

// ParseKeywords lowercases the filter and splits it on whitespace, commas and
// semicolons. Empty tokens are dropped.
func ParseKeywords(filter string) []string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil
	}
	fields := strings.FieldsFunc(lower(filter), func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Matches reports whether any keyword occurs in the node's name or in its
// formatted numeric summary (which only tasks and packages with progress
// have). No keywords matches everything.
func Matches(n model.Node, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	hay := n.Label()
	if s := n.Summary(); s != "" {
		hay += " " + s
	}
	hay = lower(hay)
	for _, k := range keywords {
		if strings.Contains(hay, k) {
			return true
		}
	}
	return false
}

func subtreeMatches(n model.Node, keywords []string) bool {
	for _, ch := range n.Children() {
		if Matches(ch, keywords) || subtreeMatches(ch, keywords) {
			return true
		}
	}
	return false
}
