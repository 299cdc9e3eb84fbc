package community

import (
	"fmt"
	"strings"
)

// Condition is a community-reported weather label. The set is closed.
type Condition string

const (
	ConditionSunny  Condition = "Sunny"
	ConditionCloudy Condition = "Cloudy"
	ConditionRain   Condition = "Rain"
	ConditionWindy  Condition = "Windy"
	ConditionSnow   Condition = "Snow"
	ConditionStorm  Condition = "Storm"
)

// MaxConditions is the largest number of labels a single report may carry.
const MaxConditions = 3

// AllConditions lists the valid labels in display order.
var AllConditions = []Condition{
	ConditionSunny,
	ConditionCloudy,
	ConditionRain,
	ConditionWindy,
	ConditionSnow,
	ConditionStorm,
}

// Valid reports whether c is one of the known labels.
func (c Condition) Valid() bool {
	switch c {
	case ConditionSunny, ConditionCloudy, ConditionRain, ConditionWindy, ConditionSnow, ConditionStorm:
		return true
	}
	return false
}

// ParseCondition maps a label to a Condition, ignoring case and surrounding
// whitespace. Unknown labels are rejected.
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	for _, c := range AllConditions {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown condition %q", ErrInvalidConditions, s)
}

// ParseConditions parses and validates a submitted label list.
func ParseConditions(labels []string) ([]Condition, error) {
	out := make([]Condition, 0, len(labels))
	for _, l := range labels {
		c, err := ParseCondition(l)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := ValidateConditions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateConditions checks a report label set: 1 to MaxConditions known
// labels with no repeats.
func ValidateConditions(conds []Condition) error {
	if len(conds) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidConditions)
	}
	if len(conds) > MaxConditions {
		return fmt.Errorf("%w: at most %d conditions are allowed, got %d", ErrInvalidConditions, MaxConditions, len(conds))
	}
	seen := make(map[Condition]struct{}, len(conds))
	for _, c := range conds {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown condition %q", ErrInvalidConditions, c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: condition %q repeated", ErrInvalidConditions, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// SameConditionSet reports whether a and b hold the same labels with the same
// cardinality, regardless of order.
func SameConditionSet(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Condition]int, len(a))
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
		if counts[c] < 0 {
			return false
		}
	}
	return true
}

// JoinConditions renders labels as a comma separated list.
func JoinConditions(conds []Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// SplitConditions is the inverse of JoinConditions. It does not validate.
func SplitConditions(s string) []Condition {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]Condition, 0, len(parts))
	for _, p := range parts {
		out = append(out, Condition(strings.TrimSpace(p)))
	}
	return out
}
