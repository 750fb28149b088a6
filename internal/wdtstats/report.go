package wdtstats

import (
	"fmt"
	"io"
	"text/template"
	"time"
)

const reportTemplateText = `program: {{.Name}}
started_at:          {{.StartedAt}}
crashed_at:          {{.CrashedAt}}
heartbeat_reset_at:  {{.HeartbeatResetAt}}

starts:              {{.Record.StartCount}}
crashes:             {{.Record.CrashCount}}
heartbeat_resets:    {{.Record.HeartbeatResetCount}}

first_heartbeat_sec: avg {{.Record.AvgFirstHeartbeat}}  min {{.Record.MinFirstHeartbeat}}  max {{.Record.MaxFirstHeartbeat}}
heartbeat_gap_sec:   avg {{.Record.AvgHeartbeat}}  min {{.Record.MinHeartbeat}}  max {{.Record.MaxHeartbeat}}
heartbeats_per_life: avg {{.Record.AvgHeartbeatCountOld}}  (current instance: {{.Record.HeartbeatCount}})

cpu_percent:         current {{printf "%.1f" .Record.CPUCurrent}}  avg {{printf "%.1f" .Record.CPUAvg}}  min {{printf "%.1f" .Record.CPUMin}}  max {{printf "%.1f" .Record.CPUMax}}
memory_kb:           current {{printf "%.0f" .Record.MemCurrentKB}}  avg {{printf "%.0f" .Record.MemAvgKB}}  min {{printf "%.0f" .Record.MemMinKB}}  max {{printf "%.0f" .Record.MemMaxKB}}
resource_samples:    {{.Record.ResourceSampleCount}}
`

var reportTemplate = template.Must(template.New("stats-report").Parse(reportTemplateText))

type reportView struct {
	Name             string
	Record           Record
	StartedAt        string
	CrashedAt        string
	HeartbeatResetAt string
}

// WriteReport renders a human-readable summary of r for program name to w.
func WriteReport(w io.Writer, name string, r Record) error {
	view := reportView{
		Name:             name,
		Record:           r,
		StartedAt:        formatWallTime(r.StartedAt),
		CrashedAt:        formatWallTime(r.CrashedAt),
		HeartbeatResetAt: formatWallTime(r.HeartbeatResetAt),
	}
	if err := reportTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render stats report: %w", err)
	}
	return nil
}

func formatWallTime(unixSeconds int64) string {
	if unixSeconds == 0 {
		return "never"
	}
	return time.Unix(unixSeconds, 0).UTC().Format("2006-01-02 15:04:05 UTC")
}
