package model

import "strings"

// RunStatus is smartctl's exit status bitmask. Bits are independent flags.
type RunStatus uint8

// Bit positions of RunStatus, see smartctl(8) "RETURN VALUES".
const (
	BitParseError          = 0 // command line did not parse
	BitOpenFailed          = 1 // device open failed or device in low-power mode
	BitCommandFailed       = 2 // SMART/ATA command failed or checksum error
	BitFailing             = 3 // SMART status "DISK FAILING"
	BitPrefailNow          = 4 // prefail attributes <= threshold
	BitPrefailPast         = 5 // attributes were <= threshold in the past
	BitErrorLogNonEmpty    = 6 // device error log has entries
	BitSelftestLogNonEmpty = 7 // self-test log has errors
)

var statusBitNames = [8]string{
	"parse-error",
	"open-failed",
	"command-failed",
	"failing",
	"prefail-now",
	"prefail-past",
	"error-log",
	"selftest-log",
}

// Has reports whether bit is set.
func (s RunStatus) Has(bit uint) bool {
	return s&(1<<bit) != 0
}

// String lists the names of the set bits, or "ok" when none are.
func (s RunStatus) String() string {
	if s == 0 {
		return "ok"
	}
	var names []string
	for bit, name := range statusBitNames {
		if s.Has(uint(bit)) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// StatusFlags is a RunStatus spelled out as named booleans.
type StatusFlags struct {
	ParseError          bool
	OpenFailed          bool
	CommandFailed       bool
	Failing             bool
	PrefailNow          bool
	PrefailPast         bool
	ErrorLogNonEmpty    bool
	SelftestLogNonEmpty bool
}

// Health collapses the flags into a console label. Not persisted.
func (f StatusFlags) Health() string {
	switch {
	case f.ParseError || f.OpenFailed || f.CommandFailed:
		return "ERROR"
	case f.Failing || f.PrefailNow:
		return "FAILING"
	case f.PrefailPast || f.ErrorLogNonEmpty || f.SelftestLogNonEmpty:
		return "WARN"
	default:
		return "OK"
	}
}
