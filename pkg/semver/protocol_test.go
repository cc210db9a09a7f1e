package semver

import "testing"

func TestSatisfiesRange(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		rangeStr string
		want     bool
	}{
		{"major-only match", "1.4.2", "1", true},
		{"major-only no match", "1.4.2", "2", false},
		{"caret match", "1.4.2", "^1.2.0", true},
		{"caret no match", "2.1.0", "^1.2.0", false},
		{"exact match", "1.4.2", "1.4.2", true},
		{"exact no match", "1.4.2", "1.4.1", false},
		{"bad version", "one", "^1.0.0", false},
		{"bad range", "1.0.0", "not a range!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SatisfiesRange(tt.version, tt.rangeStr)
			if got != tt.want {
				t.Errorf("SatisfiesRange(%q, %q) = %v, want %v", tt.version, tt.rangeStr, got, tt.want)
			}
		})
	}
}

func TestProtocolVersion_SatisfiesDefaultRange(t *testing.T) {
	if !SatisfiesRange(ProtocolVersion, "^1.0.0") {
		t.Errorf("ProtocolVersion %s must satisfy ^1.0.0", ProtocolVersion)
	}
}

func TestCheckCompatible(t *testing.T) {
	if err := CheckCompatible("1.2.0", "^1.0.0"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckCompatible("2.0.0", "^1.0.0"); err == nil {
		t.Error("expected error for incompatible major")
	}
	if err := CheckCompatible("x", "^1.0.0"); err == nil {
		t.Error("expected error for invalid version")
	}
	if err := CheckCompatible("1.0.0", "not a range!"); err == nil {
		t.Error("expected error for invalid range")
	}
}

func TestIsMajorOnly(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"12", true},
		{"1.0", false},
		{"^1", false},
		{"+1", false},
		{"-1", false},
		{"99999999999999999999", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMajorOnly(tt.input); got != tt.want {
			t.Errorf("IsMajorOnly(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractMajorFromRange(t *testing.T) {
	if got := ExtractMajorFromRange("3"); got != 3 {
		t.Errorf("ExtractMajorFromRange(3) = %d, want 3", got)
	}
	if got := ExtractMajorFromRange("^3.0.0"); got != -1 {
		t.Errorf("ExtractMajorFromRange(^3.0.0) = %d, want -1", got)
	}
	if got := ExtractMajorFromRange("99999999999999999999"); got != -1 {
		t.Errorf("ExtractMajorFromRange(overflow) = %d, want -1", got)
	}
	if got := ExtractMajorFromRange("007"); got != 7 {
		t.Errorf("ExtractMajorFromRange(007) = %d, want 7", got)
	}
}
