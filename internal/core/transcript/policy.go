package transcript

import (
	"strings"
	"unicode/utf8"
)

// JoinPolicy controls how transcript fragments are joined into one utterance.
// The terminal-rune set and separator are configurable because the upstream
// recognizer is inconsistent about sentence punctuation across languages.
type JoinPolicy struct {
	TerminalRunes string
	Separator     string
	InsertPeriod  bool
}

// DefaultJoinPolicy returns the joining rule used when no configuration is
// provided: fragments separated by a single space, with a period inserted
// when the buffer does not already end in sentence punctuation.
func DefaultJoinPolicy() JoinPolicy {
	return JoinPolicy{
		TerminalRunes: ".!?。！？",
		Separator:     " ",
		InsertPeriod:  true,
	}
}

// Join appends a fragment to the buffer according to the policy. A buffer of
// "Hello" joined with "there" yields "Hello. there".
func (p JoinPolicy) Join(buffer, fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return buffer
	}
	if buffer == "" {
		return fragment
	}
	if p.InsertPeriod && !p.EndsTerminated(buffer) {
		buffer += "."
	}
	return buffer + p.Separator + fragment
}

// EndsTerminated reports whether s ends with a terminal rune, ignoring
// trailing whitespace.
func (p JoinPolicy) EndsTerminated(s string) bool {
	s = strings.TrimRight(s, " \t\r\n")
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(p.TerminalRunes, r)
}
