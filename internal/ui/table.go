package ui

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderParticipants prints the current room membership.
func RenderParticipants(localID string, remoteIDs []string, states map[string]string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Participant", "State"})
	t.AppendRow(table.Row{1, localID + " (you)", "-"})
	for i, id := range remoteIDs {
		state := states[id]
		if state == "" {
			state = "unknown"
		}
		t.AppendRow(table.Row{i + 2, id, state})
	}
	t.Render()
}

// TransferSummary is the post-transfer stats block.
type TransferSummary struct {
	Status   string
	Name     string
	Size     string
	Duration string
	Speed    string
}

// RenderTransferSummary prints the stats table after a transfer.
func RenderTransferSummary(summary TransferSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Status", summary.Status},
		{"File", summary.Name},
		{"Size", summary.Size},
		{"Duration", summary.Duration},
		{"Speed", summary.Speed},
	})
	t.Render()
}
