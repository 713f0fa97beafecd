package printer

import (
	"io"
	"strings"

	"github.com/blang/semver"
	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/autopkg/autopkg/history"
	"github.com/autopkg/autopkg/runner"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer, headers ...interface{}) table.Table {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	tbl := table.New(headers...)
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	tbl.WithWriter(w)
	return tbl
}

// Table prints a summary of one run.
func Table(w io.Writer, results []runner.Result) {
	tbl := newTable(w, "Application", "Current", "Available", "Outcome", "Note")
	for _, res := range results {
		tbl.AddRow(res.Name, res.CurrentVersion, res.NewVersion, string(res.Outcome), note(res))
	}
	tbl.Print()
}

// History prints past run entries, newest first.
func History(w io.Writer, entries []history.Entry) {
	tbl := newTable(w, "Recorded", "Run", "Application", "Outcome", "Current", "New", "Error")
	for _, e := range entries {
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		tbl.AddRow(e.RecordedAt.Local().Format(timeLayout), run, e.Application, e.Outcome, e.CurrentVersion, e.NewVersion, e.Error)
	}
	tbl.Print()
}

func note(res runner.Result) string {
	var parts []string
	switch res.Outcome {
	case runner.OutcomeFailed:
		if res.Err != nil {
			parts = append(parts, res.Err.Error())
		}
	case runner.OutcomeAvailable:
		parts = append(parts, "downloaded to "+res.Artifact)
	}
	if res.NewVersion != "" && isPrerelease(res.NewVersion) && !isPrerelease(res.CurrentVersion) {
		parts = append(parts, "prerelease")
	}
	return strings.Join(parts, "; ")
}

func isPrerelease(v string) bool {
	sv, err := semver.ParseTolerant(v)
	if err != nil {
		return false
	}
	return len(sv.Pre) > 0
}
