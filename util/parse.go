package util

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
)

// ReadFileLines reads a file and returns its lines.
func ReadFileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// IndentJSON pretty-prints a JSON document. Invalid input is returned as is.
func IndentJSON(s, indent string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", indent); err != nil {
		return s
	}
	return buf.String()
}
