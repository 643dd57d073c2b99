package collector

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/util"
)

// TargetLineError reports a drive list line that is not "<device>, <kind>".
type TargetLineError struct {
	Line int
	Text string
}

func (e *TargetLineError) Error() string {
	return fmt.Sprintf("drive list line %d: want \"<device>, <kind>\", got %q", e.Line, e.Text)
}

// ParseTargets parses a drive list, one "<device>, <kind>" per line. All
// whitespace is removed from a line before splitting. Empty lines and lines
// starting with # are skipped. An empty list is not an error here.
func ParseTargets(lines []string) ([]model.DriveTarget, error) {
	var targets []model.DriveTarget
	for i, raw := range lines {
		line := stripSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		device, kind, ok := strings.Cut(line, ",")
		if !ok || device == "" || kind == "" || strings.Contains(kind, ",") {
			return nil, &TargetLineError{Line: i + 1, Text: raw}
		}
		targets = append(targets, model.DriveTarget{Device: device, Kind: kind})
	}
	return targets, nil
}

// LoadTargets reads and parses the drive list file at path.
func LoadTargets(path string) ([]model.DriveTarget, error) {
	lines, err := util.ReadFileLines(path)
	if err != nil {
		return nil, fmt.Errorf("read drive list: %w", err)
	}
	return ParseTargets(lines)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
