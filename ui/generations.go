package ui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/ftahirops/drivelog/model"
)

// identityFacts is the subset of identity data shown in tables.
type identityFacts struct {
	Model    string
	Serial   string
	Capacity string
}

func parseIdentityFacts(data string) identityFacts {
	var doc struct {
		ModelName    string `json:"model_name"`
		SerialNumber string `json:"serial_number"`
		UserCapacity struct {
			Bytes uint64 `json:"bytes"`
		} `json:"user_capacity"`
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return identityFacts{Model: "?"}
	}
	f := identityFacts{Model: doc.ModelName, Serial: doc.SerialNumber}
	if doc.UserCapacity.Bytes > 0 {
		f.Capacity = humanize.Bytes(doc.UserCapacity.Bytes)
	}
	return f
}

// RenderGenerations renders identity snapshots as a table. The newest
// generation of each drive is highlighted.
func RenderGenerations(snaps []model.IdentitySnapshot, now time.Time) string {
	if len(snaps) == 0 {
		return labelStyle.Render("no drives recorded yet") + "\n"
	}

	latest := make(map[string]int)
	for _, s := range snaps {
		key := s.OwnerHost + "\x00" + s.DeviceName
		if s.Generation > latest[key] {
			latest[key] = s.Generation
		}
	}

	rows := make([][]string, 0, len(snaps))
	current := make([]bool, 0, len(snaps))
	for _, s := range snaps {
		f := parseIdentityFacts(s.IdentityData)
		rows = append(rows, []string{
			s.OwnerHost,
			s.DeviceName,
			strconv.Itoa(s.Generation),
			f.Model,
			f.Serial,
			f.Capacity,
			humanize.RelTime(s.ObservedAt, now, "ago", "from now"),
		})
		current = append(current, latest[s.OwnerHost+"\x00"+s.DeviceName] == s.Generation)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorGray)).
		Headers("HOST", "DEVICE", "GEN", "MODEL", "SERIAL", "CAPACITY", "FIRST SEEN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case row >= 0 && row < len(current) && current[row]:
				return valueStyle.Padding(0, 1)
			default:
				return labelStyle.Padding(0, 1)
			}
		})
	return fmt.Sprintln(t.String())
}
