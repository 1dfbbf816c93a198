package portal

import "testing"

func TestAffirmative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"upper Y", "Y", true},
		{"lower y", "y", true},
		{"yes", "yes", true},
		{"true string", "true", true},
		{"one string", "1", true},
		{"padded Y", " Y ", true},
		{"N", "N", false},
		{"no", "no", false},
		{"empty string", "", false},
		{"zero string", "0", false},
		{"int one", 1, true},
		{"int zero", 0, false},
		{"int64 one", int64(1), true},
		{"float one", 1.0, true},
		{"float zero", 0.0, false},
		{"float two", 2.0, false},
		{"nil", nil, false},
		{"map", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Affirmative(tt.in); got != tt.want {
				t.Errorf("Affirmative(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAffirmativeResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"plain true", true, true},
		{"plain Y", "Y", true},
		{"wrapped Y", []any{"Y"}, true},
		{"wrapped true", []any{true}, true},
		{"wrapped N", []any{"N"}, false},
		{"empty list", []any{}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AffirmativeResult(tt.in); got != tt.want {
				t.Errorf("AffirmativeResult(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
