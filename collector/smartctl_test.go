package collector

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/ftahirops/drivelog/model"
)

const sataOutput = `{
  "smartctl": {"version": [7, 4], "exit_status": 4, "messages": [{"string": "Read SMART Log failed", "severity": "error"}]},
  "device": {"name": "/dev/sda", "type": "sat", "protocol": "ATA"},
  "model_name": "WDC WD40EFRX",
  "serial_number": "WD-1234",
  "ata_smart_attributes": {"revision": 16}
}`

func fakeRun(stdout, stderr string, code int, err error) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
		return []byte(stdout), []byte(stderr), code, err
	}
}

func TestSmartctlArgs(t *testing.T) {
	s := NewSmartctl("/usr/sbin/smartctl", 0)
	tests := []struct {
		target model.DriveTarget
		want   []string
	}{
		{model.DriveTarget{Device: "/dev/sda", Kind: "sat"}, []string{"-a", "-j", "/dev/sda", "-d", "sat"}},
		{model.DriveTarget{Device: "/dev/nvme0", Kind: "nvme"}, []string{"-a", "-j", "/dev/nvme0", "-d", "nvme"}},
		{model.DriveTarget{Device: "/dev/sdb"}, []string{"-a", "-j", "/dev/sdb"}},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			if got := s.Args(tt.target); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSmartctlDefaults(t *testing.T) {
	s := NewSmartctl("", 0)
	if s.Path == "" || s.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", s)
	}
}

func TestInvokeNonZeroExitWithJSON(t *testing.T) {
	s := NewSmartctl("smartctl", time.Second)
	s.run = fakeRun(sataOutput, "", 4, errors.New("exit status 4"))

	report, err := s.Invoke(context.Background(), model.DriveTarget{Device: "/dev/sda", Kind: "sat"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	h, err := report.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if h.Smartctl.ExitStatus != 4 || h.Device.Name != "/dev/sda" || h.Device.Type != "sat" {
		t.Errorf("header %+v", h)
	}
	if len(h.Smartctl.Messages) != 1 || h.Smartctl.Messages[0].String != "Read SMART Log failed" {
		t.Errorf("messages %+v", h.Smartctl.Messages)
	}
	if _, ok := report["ata_smart_attributes"]; !ok {
		t.Error("report lost ata_smart_attributes")
	}
}

func TestInvokeNoOutput(t *testing.T) {
	s := NewSmartctl("smartctl", time.Second)
	s.run = fakeRun("", "smartctl: not found\n", -1, exec.ErrNotFound)

	_, err := s.Invoke(context.Background(), model.DriveTarget{Device: "/dev/sda", Kind: "sat"})
	var ie *InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if ie.Device != "/dev/sda" || ie.Stderr != "smartctl: not found" {
		t.Errorf("unexpected error fields %+v", ie)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("cause not wrapped: %v", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	s := NewSmartctl("smartctl", time.Millisecond)
	s.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
		<-ctx.Done()
		return nil, nil, -1, ctx.Err()
	}

	_, err := s.Invoke(context.Background(), model.DriveTarget{Device: "/dev/sda", Kind: "sat"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestDecodeReportMalformed(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantKey string
	}{
		{"not json", `smartctl 7.4 usage`, "json"},
		{"null", `null`, "json"},
		{"array", `[1,2]`, "json"},
		{"no device", `{"smartctl":{"exit_status":0}}`, "device"},
		{"no smartctl", `{"device":{"name":"/dev/sda","type":"sat"}}`, "smartctl"},
		{"bad status", `{"device":{},"smartctl":{"exit_status":"x"}}`, "smartctl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReport([]byte(tt.data))
			var me *model.MalformedReportError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedReportError, got %v", err)
			}
			if me.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", me.Key, tt.wantKey)
			}
		})
	}
}
