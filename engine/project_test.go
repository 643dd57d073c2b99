package engine

import (
	"encoding/json"
	"testing"

	"github.com/ftahirops/drivelog/model"
)

func mustReport(t *testing.T, doc string) model.Report {
	t.Helper()
	var r model.Report
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		t.Fatalf("bad test report: %v", err)
	}
	return r
}

const nvmeReport = `{
	"device": {"type": "nvme", "name": "/dev/sda", "protocol": "NVMe"},
	"smartctl": {"exit_status": 0, "messages": []},
	"model_name": "X1",
	"serial_number": "S1",
	"temperature": {"current": 30},
	"smart_status": {"passed": true},
	"nvme_smart_health_information_log": {"temperature": 30},
	"ata_smart_attributes": {"table": []}
}`

func TestProject(t *testing.T) {
	r := mustReport(t, nvmeReport)

	got := Project(r, []string{"model_name", "serial_number", "rotation_rate"})
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(got), got)
	}
	if string(got["model_name"]) != `"X1"` {
		t.Errorf("model_name = %s", got["model_name"])
	}
	if _, ok := got["rotation_rate"]; ok {
		t.Error("absent key must be skipped")
	}
}

func TestProjectNeverAddsKeys(t *testing.T) {
	r := mustReport(t, nvmeReport)
	keys := []string{"device", "temperature"}

	once := Project(r, keys)
	twice := Project(once, keys)
	if len(once) != len(twice) {
		t.Fatalf("projection not idempotent: %v vs %v", once, twice)
	}
	for k := range twice {
		found := false
		for _, want := range keys {
			if k == want {
				found = true
			}
		}
		if !found {
			t.Errorf("key %q not in key list", k)
		}
		if string(twice[k]) != string(once[k]) {
			t.Errorf("value of %q changed", k)
		}
	}
}

func TestProjectByType(t *testing.T) {
	r := mustReport(t, nvmeReport)

	tests := []struct {
		name string
		kind string
		want []string
	}{
		{"nvme", "nvme", []string{"nvme_smart_health_information_log"}},
		{"second kind of rule", "sntasmedia", []string{"nvme_smart_health_information_log"}},
		{"sat", "sat", []string{"ata_smart_attributes"}},
		{"unknown type", "unknown-type", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectByType(r, tt.kind, DefaultDetailRules)
			if got == nil {
				t.Fatal("ProjectByType must not return nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got keys %v, want %v", got, tt.want)
			}
			for _, k := range tt.want {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q", k)
				}
			}
		})
	}
}

func TestProjectByTypeFirstMatchWins(t *testing.T) {
	r := mustReport(t, nvmeReport)
	rules := []model.DetailRule{
		{Kinds: []string{"nvme"}, Keys: []string{"temperature"}},
		{Kinds: []string{"nvme"}, Keys: []string{"nvme_smart_health_information_log"}},
	}
	got := ProjectByType(r, "nvme", rules)
	if _, ok := got["temperature"]; !ok || len(got) != 1 {
		t.Errorf("first rule should win, got %v", got)
	}
}
