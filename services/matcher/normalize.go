package matcher

import (
	"regexp"
	"strings"
	"unicode"
)

// separatorRunes are deleted outright so "田中・太郎" normalizes to "田中太郎".
var separatorRunes = map[rune]struct{}{
	'、': {}, ',': {}, '・': {}, '\\': {}, '/': {}, '／': {},
}

// bracketRunes are replaced by a space before whitespace is collapsed,
// so "山田(タロウ)" keeps its two words apart.
var bracketRunes = map[rune]struct{}{
	'(': {}, ')': {}, '（': {}, '）': {},
	'[': {}, ']': {}, '【': {}, '】': {},
}

// bracketGroup matches one bracket-delimited segment. Half- and full-width
// delimiters may be mixed because roster cells are typed by hand.
var bracketGroup = regexp.MustCompile(`[(（【\[]([^()（）【】\[\]]*)[)）】\]]`)

// Normalize deletes separators, turns brackets into spaces, collapses whitespace runs
// (including ideographic spaces) to a single space and trims.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if _, separator := separatorRunes[r]; separator {
			continue
		}
		if _, bracket := bracketRunes[r]; bracket || unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// ExtractAliases returns the normalized outer text of a roster cell (bracket
// groups removed) together with the normalized contents of every bracket group.
// Empty strings are never returned as aliases.
func ExtractAliases(rawName string) map[string]struct{} {
	aliases := make(map[string]struct{})

	for _, group := range bracketGroup.FindAllStringSubmatch(rawName, -1) {
		if alias := Normalize(group[1]); alias != "" {
			aliases[alias] = struct{}{}
		}
	}

	outer := bracketGroup.ReplaceAllString(rawName, " ")
	if alias := Normalize(outer); alias != "" {
		aliases[alias] = struct{}{}
	}

	return aliases
}
