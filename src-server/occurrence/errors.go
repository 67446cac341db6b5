package occurrence

import (
	"errors"

	"duocal/src-server/timeconv"
)

var (
	ErrInvalidInstant       = timeconv.ErrInvalidInstant
	ErrInvalidTimezone      = timeconv.ErrInvalidTimezone
	ErrUnrecognizedInterval = errors.New("unrecognized recurrence interval")
	ErrUnsupportedScope     = errors.New("unsupported edit scope, choose this_only or all_events")
	ErrAmbiguousInstanceID  = errors.New("ambiguous instance id")
	ErrInvalidRuleID        = errors.New("invalid rule id")
	ErrInvalidRule          = errors.New("invalid rule")
	ErrMissingNominalDate   = errors.New("nominal date required for this occurrence")
	ErrNotFound             = errors.New("rule not found")
)
