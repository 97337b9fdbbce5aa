// Package namematch decides whether two human display names plausibly
// denote the same person. It is intentionally permissive: a ranking aid
// for human review, not an identity proof.
package namematch

import "strings"

// nicknames maps a first-name token to its common nickname family. Static
// domain data, built once, never mutated.
var nicknames = map[string][]string{
	"mike":        {"michael", "mikey"},
	"michael":     {"mike", "mikey"},
	"john":        {"jon", "johnny", "jonathan"},
	"jon":         {"john", "johnny", "jonathan"},
	"jonathan":    {"john", "jon"},
	"matt":        {"matthew", "matty"},
	"matthew":     {"matt", "matty"},
	"dan":         {"daniel", "danny"},
	"daniel":      {"dan", "danny"},
	"rob":         {"robert", "robby", "bob"},
	"robert":      {"rob", "robby", "bob"},
	"will":        {"william", "bill", "billy"},
	"william":     {"will", "bill", "billy"},
	"chris":       {"christopher"},
	"christopher": {"chris"},
}

// Match reports whether the two names plausibly refer to the same person.
// Only the first space-separated token of each name is compared: a match is
// either token being a prefix of the other, or the nickname table mapping
// one token to the other. Surnames are ignored entirely.
func Match(name1, name2 string) bool {
	first1 := firstToken(name1)
	first2 := firstToken(name2)

	if first1 != "" && first2 != "" {
		if strings.HasPrefix(first1, first2) || strings.HasPrefix(first2, first1) {
			return true
		}
	}

	if contains(nicknames[first1], first2) {
		return true
	}
	if contains(nicknames[first2], first1) {
		return true
	}

	return false
}

func firstToken(name string) string {
	parts := strings.Split(name, " ")
	return parts[0]
}

func contains(aliases []string, token string) bool {
	for _, alias := range aliases {
		if alias == token {
			return true
		}
	}
	return false
}
