package release

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

func statusEmoji(r Result) string {
	switch r {
	case ResultSuccess:
		return "✅"
	case ResultFailure:
		return "❌"
	case ResultDryRun:
		return "🔍"
	default:
		return "➖"
	}
}

// Log prints the outcome of every application, followed by the result of the run.
func Log(logger *log.Entry, run *Run) {
	logger.Infof("Release information:")
	logger.Infof("---")
	logger.Infof("id.............: %s", run.ID)
	logger.Infof("correlation id.: %s", run.CorrelationID)
	logger.Infof("environment....: %s", run.Environment)
	logger.Infof("selected.......: %d", len(run.Selected))

	for _, outcome := range run.Outcomes {
		entryLogger := logger.WithField("app", outcome.App)
		for _, line := range outcome.Detail {
			entryLogger.Infof("%s", line)
		}
		switch {
		case outcome.Err != nil:
			entryLogger.Errorf("%s: %s", outcome.Status(), outcome.Err)
		case run.DryRun:
			entryLogger.Infof("validated")
		default:
			entryLogger.Infof("%s", outcome.Status())
		}
		if outcome.Rollback != nil {
			entryLogger.Infof("rollback: %s", outcome.Rollback.Message())
		}
	}

	logger.Infof("result.........: %s", run.Result)
	logger.Info("---")
}

// Markdown renders a summary of the run suitable for a GitHub Actions job summary.
func Markdown(w io.Writer, run *Run) {
	summary := func(format string, a ...any) {
		_, _ = fmt.Fprintf(w, format+"\n", a...)
	}

	summary("## 🚀 Release to %s", run.Environment)
	summary("")
	summary("* Release ID: %s", run.ID)
	summary("* Correlation ID: %s", run.CorrelationID)
	if !run.Started.IsZero() {
		summary("* Started at: %s", run.Started.Local().Format("2006-01-02 15:04:05"))
	}
	summary("")

	if len(run.Outcomes) > 0 {
		summary("| Application | Applied | Rolled out | Verified | Rollback | Message |")
		summary("|---|---|---|---|---|---|")
		for _, o := range run.Outcomes {
			rollbackMessage := ""
			if o.Rollback != nil {
				rollbackMessage = o.Rollback.Message()
			}
			message := ""
			if o.Err != nil {
				message = o.Err.Error()
			}
			summary("| %s | %s | %s | %s | %s | %s |", o.App, check(o.Applied), check(o.RolledOut), check(o.Verified), cell(rollbackMessage), cell(message))
		}
		summary("")
	}

	summary("%s Final status: *%s*", statusEmoji(run.Result), run.Result)
}

func check(b bool) string {
	if b {
		return "✔"
	}
	return ""
}

// cell makes a string safe for use inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// WriteSummary appends the Markdown summary of the run to path.
func WriteSummary(path string, run *Run) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	Markdown(file, run)
	return file.Close()
}
