package anonymize

import (
	"fmt"
	"strings"
	"time"
)

// issueDateLayouts are tried in order. Lending Club exports use Jan-2006;
// re-saved copies show up with the others.
var issueDateLayouts = []string{
	"Jan-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan-06",
}

// ParseIssueDate parses an issue_d cell
func ParseIssueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty issue date")
	}
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised issue date %q", s)
}
