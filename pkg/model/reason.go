package model

import (
	"fmt"
	"strings"
)

// Reason records why a package is present on the system. The numeric order
// of the constants is the precedence order: a stronger reason is never
// replaced by a weaker one.
type Reason int

const (
	// ReasonUnknown is used when no reason was recorded.
	ReasonUnknown Reason = iota
	// ReasonWeak marks packages pulled in by a weak (optional) dependency.
	ReasonWeak
	// ReasonDependency marks packages pulled in to satisfy a dependency.
	ReasonDependency
	// ReasonGroup marks packages installed as members of a group.
	ReasonGroup
	// ReasonUser marks packages the user asked for explicitly.
	ReasonUser
)

var reasonNames = map[Reason]string{
	ReasonUnknown:    "unknown",
	ReasonWeak:       "weak",
	ReasonDependency: "dep",
	ReasonGroup:      "group",
	ReasonUser:       "user",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Stronger reports whether r takes precedence over other.
func (r Reason) Stronger(other Reason) bool {
	return r > other
}

// ParseReason parses the string form of a reason. "dependency" and "manual"
// are accepted as aliases of dep and user.
func ParseReason(s string) (Reason, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "manual":
		return ReasonUser, nil
	case "group":
		return ReasonGroup, nil
	case "dep", "dependency", "automatic":
		return ReasonDependency, nil
	case "weak":
		return ReasonWeak, nil
	case "unknown", "":
		return ReasonUnknown, nil
	default:
		return ReasonUnknown, fmt.Errorf("unknown reason %q", s)
	}
}

// MaxByPrecedence returns the strongest of the given reasons, or
// ReasonUnknown when called without arguments.
func MaxByPrecedence(reasons ...Reason) Reason {
	best := ReasonUnknown
	for _, r := range reasons {
		if r > best {
			best = r
		}
	}
	return best
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	parsed, err := ParseReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
