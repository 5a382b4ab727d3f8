// Package risk classifies metric readings into discrete risk tiers using a
// single fixed rule table.
package risk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is a discrete, ordered risk classification.
// The zero value is Normal.
type Tier int

const (
	Normal Tier = iota
	Warning
	Danger
)

// String returns the canonical upper-case tier name.
func (t Tier) String() string {
	switch t {
	case Normal:
		return "NORMAL"
	case Warning:
		return "WARNING"
	case Danger:
		return "DANGER"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// MarshalJSON encodes the tier as its name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts tier names and provider level names.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseTier(s)
	if !ok {
		return fmt.Errorf("unknown risk tier %q", s)
	}
	*t = parsed
	return nil
}

// ParseTier maps a tier name or a provider risk level to a Tier.
// Provider levels map HIGH to Danger, MEDIUM to Warning and LOW to Normal.
// ok is false for empty or unrecognized input, meaning "not asserted".
func ParseTier(s string) (Tier, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL", "LOW":
		return Normal, true
	case "WARNING", "MEDIUM":
		return Warning, true
	case "DANGER", "HIGH":
		return Danger, true
	default:
		return Normal, false
	}
}

// Max returns the highest tier in tiers, or Normal when empty.
func Max(tiers ...Tier) Tier {
	out := Normal
	for _, t := range tiers {
		if t > out {
			out = t
		}
	}
	return out
}
