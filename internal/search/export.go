package search

import (
	"strings"
	"time"

	"github.com/beliefatlas/apiserver/types"
)

// ExportContentType is the MIME type of the snapshot export.
const ExportContentType = "text/csv"

var exportHeader = []string{"Name", "Username", "Role", "Completed", "Created", "Belief Summary"}

// ExportCSV serializes the currently materialized result set as a CSV
// snapshot. The snapshot reflects whatever is on screen: already
// filtered and sorted, and possibly partial due to pagination. Every
// field is wrapped in double quotes; commas in the belief summary are
// replaced with semicolons. There is no further escaping: this is the
// literal format the dashboard download produces.
func (c *Controller) ExportCSV() (filename string, data []byte) {
	c.mu.Lock()
	results := append([]types.Profile(nil), c.state.Results...)
	c.mu.Unlock()

	lines := make([]string, 0, len(results)+1)
	lines = append(lines, quoteRow(exportHeader))
	for _, profile := range results {
		completed := "No"
		if profile.IsCompleted {
			completed = "Yes"
		}
		summary := strings.ReplaceAll(profile.BeliefSummary, ",", ";")
		lines = append(lines, quoteRow([]string{
			profile.User.FullName(),
			profile.User.Username,
			profile.User.Role,
			completed,
			profile.CreatedAt.Format("Jan 2, 2006"),
			summary,
		}))
	}

	filename = "profile-search-results-" + time.Now().Format("2006-01-02") + ".csv"
	return filename, []byte(strings.Join(lines, "\n"))
}

func quoteRow(fields []string) string {
	return `"` + strings.Join(fields, `","`) + `"`
}
