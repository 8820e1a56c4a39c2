package ward

import (
	"strconv"
	"strings"
)

// Criteria is the operator-selected visibility filter for one triage
// cycle. Set membership is strict: an empty severity or category set
// matches nothing, not everything.
type Criteria struct {
	Severities []Severity `json:"severities"`
	Categories []Category `json:"categories"`
	QuietMode  bool       `json:"quiet_mode"`
	Search     string     `json:"search"`
}

// AllCriteria selects every severity and category with quiet mode off and
// no search term, matching the dashboard's default sidebar state.
func AllCriteria() Criteria {
	return Criteria{
		Severities: []Severity{SeverityCritical, SeverityWarning, SeverityMonitoring},
		Categories: []Category{CategoryAirway, CategoryBreathing, CategoryCirculation},
	}
}

// Validate checks every severity and category token. A bad token is a
// caller bug and fails fast with ErrInvalidCriteria.
func (c Criteria) Validate() error {
	for _, s := range c.Severities {
		if _, err := ParseSeverity(string(s)); err != nil {
			return err
		}
	}
	for _, cat := range c.Categories {
		if _, err := ParseCategory(string(cat)); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFilter maps the full alert collection to the subset visible under
// the criteria, joined with patient attributes. Steps run in a fixed
// order: quiet-mode override, severity/category membership, patient join,
// name/room search. Quiet mode runs before the severity filter so it is
// an override, not an additive filter. Alerts whose patient is missing
// from the roster drop out at the join.
func ApplyFilter(alerts []Alert, roster []Patient, c Criteria) []JoinedAlert {
	byID := make(map[int]Patient, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}

	sevs := make(map[Severity]bool, len(c.Severities))
	for _, s := range c.Severities {
		sevs[s] = true
	}
	cats := make(map[Category]bool, len(c.Categories))
	for _, cat := range c.Categories {
		cats[cat] = true
	}

	term := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]JoinedAlert, 0, len(alerts))
	for _, al := range alerts {
		if c.QuietMode && al.Severity != SeverityCritical {
			continue
		}
		if !sevs[al.Severity] || !cats[al.Category] {
			continue
		}
		p, ok := byID[al.PatientID]
		if !ok {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strconv.Itoa(p.Room), term) {
			continue
		}
		out = append(out, JoinedAlert{Alert: al, Name: p.Name, Room: p.Room})
	}
	return out
}
