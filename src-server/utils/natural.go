package utils

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

type Natural struct {
	parser *when.Parser
}

func NewNatural() *Natural {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	return &Natural{parser: parser}
}

// Parse resolves text such as "tomorrow at 9am" against now on the viewer's
// wall clock and returns the instant in UTC.
func (n *Natural) Parse(text string, now time.Time, loc *time.Location) (time.Time, error) {
	if text == "" {
		return time.Time{}, fmt.Errorf("(*Natural).Parse: text is blank")
	}
	result, err := n.parser.Parse(text, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("(*Natural).Parse: %w", err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("(*Natural).Parse: no date found in %q", text)
	}
	return result.Time.UTC(), nil
}
