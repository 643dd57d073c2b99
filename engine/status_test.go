package engine

import "testing"

func TestDecodeStatusEveryBit(t *testing.T) {
	for v := 0; v <= 255; v++ {
		f := DecodeStatus(uint8(v))
		bit := func(n uint) bool { return (v>>n)&1 == 1 }
		got := []bool{
			f.ParseError, f.OpenFailed, f.CommandFailed, f.Failing,
			f.PrefailNow, f.PrefailPast, f.ErrorLogNonEmpty, f.SelftestLogNonEmpty,
		}
		for n, g := range got {
			if g != bit(uint(n)) {
				t.Fatalf("DecodeStatus(%d): flag for bit %d = %v, want %v", v, n, g, bit(uint(n)))
			}
		}
	}
}

func TestDecodeStatusHealth(t *testing.T) {
	tests := []struct {
		name string
		code uint8
		want string
	}{
		{"clean", 0, "OK"},
		{"error log only", 1 << 6, "WARN"},
		{"prefail past", 1 << 5, "WARN"},
		{"prefail now", 1 << 4, "FAILING"},
		{"failing", 1 << 3, "FAILING"},
		{"open failed", 1 << 1, "ERROR"},
		{"parse error wins", 1 | 1<<3, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeStatus(tt.code).Health(); got != tt.want {
				t.Errorf("Health(%08b) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}
