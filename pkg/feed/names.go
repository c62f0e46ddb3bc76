package feed

import (
	"regexp"
	"strings"
)

// Identity is a lecturer identity resolved from a raw feed entry.
type Identity struct {
	Surname   string `json:"surname"`
	Firstname string `json:"firstname"`
	Username  string `json:"username"`
}

// properWord matches a proper-cased word: a capital letter followed by
// non-capital characters only. Surnames in the feed are all-caps, so a word
// of this shape belongs to the firstname.
var properWord = regexp.MustCompile(`^[A-Z][^A-Z]+$`)

// SplitName splits a combined "SURNAME Firstname" string from the feed.
// The firstname is the rightmost contiguous run of proper-cased words; what
// precedes it is the surname. An entirely upper-case name yields an empty
// firstname: the heuristic cannot tell a multi-word all-caps surname from a
// missing firstname, which is an accepted limitation of the feed format.
func SplitName(name string) (surname, firstname string) {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "", ""
	}

	// The first word always belongs to the surname.
	i := len(words)
	for i > 1 && properWord.MatchString(words[i-1]) {
		i--
	}

	return strings.Join(words[:i], " "), strings.Join(words[i:], " ")
}

// ResolveIdentity resolves one raw feed entry, a single-key mapping from a
// combined name to a username. A nil or empty entry yields nil.
func ResolveIdentity(raw map[string]string) *Identity {
	if len(raw) == 0 {
		return nil
	}

	for name, username := range raw {
		surname, firstname := SplitName(name)
		return &Identity{
			Surname:   surname,
			Firstname: firstname,
			Username:  username,
		}
	}
	return nil
}
