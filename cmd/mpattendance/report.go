package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/mp-attendance/models"
	"github.com/aluiziolira/mp-attendance/stats"
	"github.com/guptarohit/asciigraph"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printSummary(w io.Writer, snapshot *models.Snapshot, result *models.RunResult, outputFile string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Scrape complete")

	overall := snapshot.Statistics.Overall
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}

	t.AppendRows([]table.Row{
		{"Members", overall.TotalMPs},
		{"Degraded members", snapshot.Metadata.DegradedMembers},
		{"Partial", snapshot.Metadata.Partial},
		{"Sitting days", overall.TotalSittingDays},
		{"Avg absentee rate", fmt.Sprintf("%.1f%%", overall.AvgAbsenteeRate)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Requests", result.RequestCount},
		{"Success rate", fmt.Sprintf("%.2f%%", successRate)},
		{"Errors", result.ErrorCount},
		{"Retries", result.RetryCount},
		{"Failed URLs", len(result.FailedURLs)},
	})
	if len(result.ErrorsByType) > 0 {
		t.AppendRow(table.Row{"Error types", formatCounts(result.ErrorsByType)})
	}
	if len(result.SkippedFragments) > 0 {
		t.AppendRow(table.Row{"Skipped fragments", formatCounts(result.SkippedFragments)})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond)},
		{"Run ID", snapshot.Metadata.RunID},
		{"Output file", outputFile},
	})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printWorst(w io.Writer, snapshot *models.Snapshot, n int) {
	byID := make(map[string]models.MemberSummary, len(snapshot.Members))
	for _, m := range snapshot.Members {
		byID[m.ID] = m
	}

	ids := snapshot.Statistics.WorstAbsentees
	if len(ids) == 0 {
		return
	}
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Highest absentee rates")
	t.AppendHeader(table.Row{"#", "Member", "Party", "District", "Sittings", "Absentee rate"})
	for i, id := range ids {
		m := byID[id]
		t.AppendRow(table.Row{i + 1, m.Name, stats.GroupKey(m.Party), stats.GroupKey(m.District), m.TotalSittings, fmt.Sprintf("%.1f%%", m.AbsenteeRate)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printMembers(w io.Writer, members []models.Member) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Party", "District"})
	for _, m := range members {
		t.AppendRow(table.Row{m.ID, m.Name, m.Party, m.District})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d members", len(members)), "", ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printHouseRecords(w io.Writer, records []models.ResolvedHouseRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Name", "Status", "Member ID", "Score"})
	for _, r := range records {
		id := r.MemberID
		if id == "" {
			id = "-"
		}
		t.AppendRow(table.Row{r.Date, r.Name, r.Status, id, fmt.Sprintf("%.2f", r.Score)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printTrend(w io.Writer, points []stats.DayPoint) {
	if len(points) < 2 {
		return
	}

	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = p.AbsenteeRate
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("Absentee rate per sitting day, %s to %s (%%)", points[0].Date, points[len(points)-1].Date)),
	)
	fmt.Fprintln(w, graph)
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
