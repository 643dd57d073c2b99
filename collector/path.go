package collector

import (
	"os/exec"
	"runtime"
)

// windowsSmartctl is where the smartmontools installer puts the binary on
// the hosts we run on.
const windowsSmartctl = "c:/tools/smartctl/bin/smartctl.exe"

// DefaultSmartctlPath picks the smartctl binary for the running OS.
func DefaultSmartctlPath() string {
	return smartctlPathFor(runtime.GOOS, exec.LookPath)
}

func smartctlPathFor(goos string, lookPath func(string) (string, error)) string {
	if goos == "windows" {
		return windowsSmartctl
	}
	if p, err := lookPath("smartctl"); err == nil {
		return p
	}
	return "smartctl"
}
