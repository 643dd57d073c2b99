package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/ftahirops/drivelog/model"
	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 (JCS) form of the report. Two reports with
// the same content always produce the same text, so stored identities can
// be compared as strings.
//
// Integer literals are written exactly rather than through an IEEE double,
// so counters above 2^53 keep every digit. Strings and fractional numbers
// are serialized by jcs.
func Canonical(report model.Report) (string, error) {
	if report == nil {
		report = model.Report{}
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("decode report: %w", err)
	}
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", fmt.Errorf("canonicalize report: %w", err)
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case json.Number:
		s, err := canonicalNumber(v)
		if err != nil {
			return err
		}
		b.WriteString(s)
	case string:
		return writeString(b, v)
	case []any:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		// Object members sort by UTF-16 code units.
		slices.SortFunc(keys, func(x, y string) int {
			return slices.Compare(utf16.Encode([]rune(x)), utf16.Encode([]rune(y)))
		})
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("unexpected JSON value %T", v)
	}
	return nil
}

func writeString(b *strings.Builder, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return err
	}
	b.Write(out)
	return nil
}

// canonicalNumber keeps integers exact and formats everything else the
// ECMAScript way.
func canonicalNumber(n json.Number) (string, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("invalid integer %q", s)
		}
		return i.String(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("number %q: %w", s, err)
	}
	return jcs.NumberToJSON(f)
}
