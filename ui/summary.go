package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/drivelog/engine"
)

// RenderSummary renders a run summary for the terminal, one line per drive
// plus the smartctl messages of drives that failed.
func RenderSummary(s engine.RunSummary) string {
	var b strings.Builder

	took := s.Finished.Sub(s.Started).Round(time.Millisecond)
	fmt.Fprintf(&b, "%s %s  %s\n",
		titleStyle.Render("drivelog"),
		valueStyle.Render(s.OwnerHost),
		labelStyle.Render(fmt.Sprintf("%d/%d recorded in %s", s.Recorded(), len(s.Drives), took)))

	for _, d := range s.Drives {
		b.WriteString(renderDriveLine(d))
		b.WriteByte('\n')

		var fatal *engine.DeviceFatalError
		if errors.As(d.Err, &fatal) {
			for _, m := range fatal.Messages {
				fmt.Fprintf(&b, "    %s\n", labelStyle.Render(m))
			}
		}
	}
	return b.String()
}

func renderDriveLine(d engine.DriveResult) string {
	health := "ERROR"
	if d.Err == nil {
		health = d.Flags.Health()
	}
	cols := []string{
		healthStyle(health).Render(padRight(health, 7)),
		valueStyle.Render(padRight(d.DeviceName, 16)),
		labelStyle.Render(padRight(d.Target.Kind, 10)),
	}
	switch {
	case d.Err != nil:
		cols = append(cols, critStyle.Render(d.Err.Error()))
	case d.NewGeneration:
		cols = append(cols, newGenStyle.Render(fmt.Sprintf("gen %d NEW", d.Generation)))
	default:
		cols = append(cols, valueStyle.Render(fmt.Sprintf("gen %d", d.Generation)))
	}
	if d.Attempts > 1 {
		cols = append(cols, labelStyle.Render(fmt.Sprintf("(%d attempts)", d.Attempts)))
	}
	if d.Err == nil && d.Status != 0 {
		cols = append(cols, warnStyle.Render(d.Status.String()))
	}
	return "  " + strings.Join(cols, " ")
}
