package model

import (
	"encoding/json"
	"fmt"
)

// Report is one smartctl JSON document, keyed by top-level field. Values
// are kept raw so projections copy them byte for byte.
type Report map[string]json.RawMessage

// ToolMessage is one entry of smartctl.messages.
type ToolMessage struct {
	String   string `json:"string"`
	Severity string `json:"severity,omitempty"`
}

// ReportHeader is the part of a report the pipeline branches on.
type ReportHeader struct {
	Device struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Protocol string `json:"protocol,omitempty"`
	} `json:"device"`
	Smartctl struct {
		ExitStatus RunStatus     `json:"exit_status"`
		Messages   []ToolMessage `json:"messages,omitempty"`
	} `json:"smartctl"`
}

// MalformedReportError means smartctl produced JSON lacking the device or
// smartctl blocks, or blocks of the wrong shape.
type MalformedReportError struct {
	Key string
	Err error
}

func (e *MalformedReportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed smartctl report: missing %q", e.Key)
	}
	return fmt.Sprintf("malformed smartctl report: %s: %v", e.Key, e.Err)
}

func (e *MalformedReportError) Unwrap() error { return e.Err }

// Header decodes the device and smartctl blocks.
func (r Report) Header() (ReportHeader, error) {
	var h ReportHeader
	for _, key := range []string{"device", "smartctl"} {
		raw, ok := r[key]
		if !ok {
			return h, &MalformedReportError{Key: key}
		}
		var dst any = &h.Device
		if key == "smartctl" {
			dst = &h.Smartctl
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return h, &MalformedReportError{Key: key, Err: err}
		}
	}
	return h, nil
}
