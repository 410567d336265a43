package scoring

import "strings"

// Verdict is the coarse safety level of a supplement for a user.
type Verdict string

const (
	Safe    Verdict = "safe"
	Caution Verdict = "caution"
	Danger  Verdict = "danger"
)

func (v Verdict) rank() int {
	switch v {
	case Danger:
		return 2
	case Caution:
		return 1
	default:
		return 0
	}
}

// Combine returns the more severe verdict; danger always wins.
func Combine(a, b Verdict) Verdict {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ParseVerdict accepts the wire values, case-insensitively. Anything else is reported as not ok.
func ParseVerdict(value string) (Verdict, bool) {
	switch Verdict(strings.ToLower(strings.TrimSpace(value))) {
	case Safe:
		return Safe, true
	case Caution:
		return Caution, true
	case Danger:
		return Danger, true
	default:
		return "", false
	}
}
