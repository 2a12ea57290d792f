package invariant

import "fmt"

// Severity orders the escalation policy of a check. The zero value is
// unset and is replaced by SeverityError when a check is built.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	return s >= SeverityWarning && s <= SeverityCritical
}

// AtLeast reports whether s escalates at least as far as other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// ParseSeverity parses the lower-case names produced by String.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
