package application

import (
	"time"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// RecordRun appends an applied run to the project's history. runErr is the
// error Run returned. Dry runs, aborted or interrupted runs and runs that
// changed nothing are not recorded.
func RecordRun(h domain.RunHistory, projectPath string, rs domain.RuleSet, sum domain.Summary, runErr error, now time.Time) (bool, error) {
	if runErr != nil || sum.DryRun || sum.Fatal != "" || sum.Changed == 0 {
		return false, nil
	}
	entry := domain.NewRunEntry(now.UTC().Format(time.RFC3339), rs.RuntimeVersion, sum)
	if err := h.Save(projectPath, entry); err != nil {
		return false, err
	}
	return true, nil
}
