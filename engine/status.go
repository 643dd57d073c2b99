package engine

import "github.com/ftahirops/drivelog/model"

// DecodeStatus spells out smartctl's exit status bitmask.
func DecodeStatus(code uint8) model.StatusFlags {
	s := model.RunStatus(code)
	return model.StatusFlags{
		ParseError:          s.Has(model.BitParseError),
		OpenFailed:          s.Has(model.BitOpenFailed),
		CommandFailed:       s.Has(model.BitCommandFailed),
		Failing:             s.Has(model.BitFailing),
		PrefailNow:          s.Has(model.BitPrefailNow),
		PrefailPast:         s.Has(model.BitPrefailPast),
		ErrorLogNonEmpty:    s.Has(model.BitErrorLogNonEmpty),
		SelftestLogNonEmpty: s.Has(model.BitSelftestLogNonEmpty),
	}
}
