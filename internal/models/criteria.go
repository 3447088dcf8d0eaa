package models

import (
	"strings"

	"github.com/yoockh/jobhunt/internal/utils"
)

// SearchCriteria is what the user submits. Immutable once accepted.
type SearchCriteria struct {
	JobTitle          string `json:"jobTitle"`
	Location          string `json:"location"`
	Skills            string `json:"skills"` // comma separated
	SalaryExpectation int    `json:"salary"` // thousands of currency units
}

// Validate rejects criteria with any of the four fields missing. It does
// not normalize anything.
func (c SearchCriteria) Validate() error {
	const op = "SearchCriteria.Validate"

	var missing []string
	if strings.TrimSpace(c.JobTitle) == "" {
		missing = append(missing, "jobTitle")
	}
	if strings.TrimSpace(c.Location) == "" {
		missing = append(missing, "location")
	}
	if c.SalaryExpectation <= 0 {
		missing = append(missing, "salary")
	}
	if strings.TrimSpace(c.Skills) == "" {
		missing = append(missing, "skills")
	}
	if len(missing) > 0 {
		return utils.E(utils.CodeInvalidArgument, op, "missing required fields: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// SkillList splits Skills on commas, trims every token and drops empties.
func (c SearchCriteria) SkillList() []string {
	parts := strings.Split(c.Skills, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
