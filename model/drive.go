package model

import (
	"slices"
	"time"
)

// DriveTarget is one configured drive: the device handle smartctl is
// pointed at and the -d type hint passed along with it.
type DriveTarget struct {
	Device string // e.g. "/dev/sda", "/dev/disk0"
	Kind   string // e.g. "nvme", "sat"
}

func (t DriveTarget) String() string {
	return t.Device + " (" + t.Kind + ")"
}

// DetailRule maps a set of drive types to the report keys holding the
// type-specific health data.
type DetailRule struct {
	Kinds []string `json:"kinds" yaml:"kinds"`
	Keys  []string `json:"keys" yaml:"keys"`
}

// Matches reports whether kind is one of the rule's drive types.
func (r DetailRule) Matches(kind string) bool {
	return slices.Contains(r.Kinds, kind)
}

// IdentitySnapshot is an immutable record of a drive's stable attributes.
// A new one is written each time the attributes change (disk swap).
type IdentitySnapshot struct {
	OwnerHost    string    `json:"owner_host"`
	DeviceName   string    `json:"device_name"`
	Generation   int       `json:"generation"`
	IdentityData string    `json:"identity_data"` // canonical JSON
	ObservedAt   time.Time `json:"observed_at"`
}

// Observation is the per-run record of a drive's changing health data.
type Observation struct {
	OwnerHost     string    `json:"owner_host"`
	DeviceName    string    `json:"device_name"`
	Generation    int       `json:"generation"`
	ObservedAt    time.Time `json:"observed_at"`
	BriefSummary  string    `json:"brief_summary"`  // canonical JSON
	DetailSummary string    `json:"detail_summary"` // canonical JSON
}
