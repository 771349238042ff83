package app

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
)

// RenderSummary prints the run totals and the failure log.
func RenderSummary(w io.Writer, report *processor.ScrapeReport) {
	totals := table.NewWriter()
	totals.SetOutputMirror(w)
	totals.SetTitle(fmt.Sprintf("Run %s", report.RunID))
	totals.AppendHeader(table.Row{"Arrival", "Nights", "Adults", "Properties", "Ineligible", "Launched", "Succeeded", "Failed", "Duration"})
	totals.AppendRow(table.Row{
		report.Request.ArrivalDate,
		report.Request.Nights,
		report.Request.Adults,
		report.Properties,
		len(report.Ineligible),
		report.Launched,
		report.Succeeded,
		len(report.Failures),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String(),
	})
	totals.SetStyle(table.StyleRounded)
	totals.Render()

	if len(report.Failures) == 0 {
		return
	}

	byKind := report.FailuresByKind()
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	failures := table.NewWriter()
	failures.SetOutputMirror(w)
	failures.AppendHeader(table.Row{"#", "Order", "Name", "Kind", "Status", "Attempts", "Message"})
	for _, f := range report.Failures {
		status := ""
		if f.Status != 0 {
			status = fmt.Sprint(f.Status)
		}
		failures.AppendRow(table.Row{f.PropertyIndex, f.Order, f.Name, f.Kind, status, f.Attempts, f.Message})
	}
	for _, k := range kinds {
		failures.AppendFooter(table.Row{"", "", "", k, "", byKind[k], ""})
	}
	failures.SetStyle(table.StyleRounded)
	failures.Render()
}
