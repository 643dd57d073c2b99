package engine

import "github.com/ftahirops/drivelog/model"

// Default key sets. Not every key exists for every drive type; absent keys
// are skipped.
var (
	DefaultIdentityKeys = []string{
		"device",
		"model_family",
		"model_name",
		"serial_number",
		"firmware_version",
		"user_capacity",
		"form_factor",
		"rotation_rate",
	}

	DefaultBriefKeys = []string{
		"smart_status",
		"temperature",
		"power_cycle_count",
		"power_on_time",
		"smartctl",
	}

	// DefaultDetailRules is scanned in order; first match wins.
	DefaultDetailRules = []model.DetailRule{
		{Kinds: []string{"nvme", "sntasmedia"}, Keys: []string{"nvme_smart_health_information_log"}},
		{Kinds: []string{"sat"}, Keys: []string{"ata_smart_attributes"}},
	}
)

// Project returns the entries of report whose key is listed in keys.
func Project(report model.Report, keys []string) model.Report {
	out := make(model.Report, len(keys))
	for _, key := range keys {
		if v, ok := report[key]; ok {
			out[key] = v
		}
	}
	return out
}

// ProjectByType projects report onto the keys of the first rule matching
// kind. No matching rule yields an empty report.
func ProjectByType(report model.Report, kind string, rules []model.DetailRule) model.Report {
	for _, rule := range rules {
		if rule.Matches(kind) {
			return Project(report, rule.Keys)
		}
	}
	return model.Report{}
}
