package ui

import "strings"

// padRight pads s with spaces to width runes, truncating with an ellipsis
// when it is longer.
func padRight(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// truncate shortens s to maxLen runes with ellipsis if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-3]) + "..."
}

func padLeft(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return strings.Repeat(" ", width-len(runes)) + s
}
