package occurrence

import (
	"fmt"
	"regexp"

	"cloud.google.com/go/civil"
)

// "-YYYY-MM-DD" at the very end of a string
var dateSuffixPattern = regexp.MustCompile(`^(.+)-(\d{4}-\d{2}-\d{2})$`)

// InstanceID is either Original(ruleID), the occurrence at the rule's own
// start, or Expanded(ruleID, date) for every later occurrence.
type InstanceID struct {
	RuleID   string
	Date     civil.Date
	Expanded bool
}

func Original(ruleID string) InstanceID {
	return InstanceID{RuleID: ruleID}
}

func Expanded(ruleID string, d civil.Date) InstanceID {
	return InstanceID{RuleID: ruleID, Date: d, Expanded: true}
}

// String is the wire form: the bare rule id, or "{ruleID}-{YYYY-MM-DD}".
func (id InstanceID) String() string {
	if !id.Expanded {
		return id.RuleID
	}
	return id.RuleID + "-" + id.Date.String()
}

func (id InstanceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *InstanceID) UnmarshalText(b []byte) error {
	parsed, err := Decode(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Encode returns the wire id of an occurrence.
func Encode(ruleID string, nominalDate civil.Date, isFirstOccurrence bool) string {
	if isFirstOccurrence {
		return Original(ruleID).String()
	}
	return Expanded(ruleID, nominalDate).String()
}

// Decode splits a wire id back into rule id and nominal date. A trailing
// "-YYYY-MM-DD" that is not a real calendar date is treated as part of the
// rule id. Rule ids never end in a date suffix (see ValidateRuleID), so a
// remainder that still does is reported as ErrAmbiguousInstanceID.
func Decode(id string) (InstanceID, error) {
	if id == "" {
		return InstanceID{}, fmt.Errorf("Decode: blank id: %w", ErrInvalidRuleID)
	}
	ruleID, d, ok := splitDateSuffix(id)
	if !ok {
		return Original(id), nil
	}
	if _, _, again := splitDateSuffix(ruleID); again {
		return InstanceID{}, fmt.Errorf("Decode: %q: %w", id, ErrAmbiguousInstanceID)
	}
	return Expanded(ruleID, d), nil
}

// IsExpandedInstance reports whether id names a non-first occurrence.
func IsExpandedInstance(id string) bool {
	decoded, err := Decode(id)
	return err == nil && decoded.Expanded
}

// ValidateRuleID rejects ids that would be indistinguishable from an
// expanded instance id.
func ValidateRuleID(id string) error {
	if id == "" {
		return fmt.Errorf("ValidateRuleID: blank id: %w", ErrInvalidRuleID)
	}
	if _, _, ok := splitDateSuffix(id); ok {
		return fmt.Errorf("ValidateRuleID: %q ends with a date: %w", id, ErrInvalidRuleID)
	}
	return nil
}

func splitDateSuffix(s string) (string, civil.Date, bool) {
	m := dateSuffixPattern.FindStringSubmatch(s)
	if m == nil {
		return "", civil.Date{}, false
	}
	d, err := civil.ParseDate(m[2])
	if err != nil {
		return "", civil.Date{}, false
	}
	return m[1], d, true
}
