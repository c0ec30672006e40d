package models

import "testing"

func TestClassifyFillLevel(t *testing.T) {
	tests := []struct {
		name string
		fill float64
		want string
	}{
		{"empty", 0, StatusNormal},
		{"below warning", 49.9, StatusNormal},
		{"at warning cutoff", 50, StatusWarning},
		{"between cutoffs", 79.9, StatusWarning},
		{"at critical cutoff", 80, StatusCritical},
		{"full", 100, StatusCritical},
		{"negative", -5, StatusNormal},
		{"beyond full", 150, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyFillLevel(tt.fill); got != tt.want {
				t.Errorf("ClassifyFillLevel(%v) = %q, want %q", tt.fill, got, tt.want)
			}
		})
	}
}

func TestClassifyFillLevelMonotonic(t *testing.T) {
	// Walking up the fill range must never move the status back down.
	rank := map[string]int{StatusNormal: 0, StatusWarning: 1, StatusCritical: 2}

	prev := rank[ClassifyFillLevel(0)]
	for fill := 0.5; fill <= 100; fill += 0.5 {
		current := rank[ClassifyFillLevel(fill)]
		if current < prev {
			t.Fatalf("status rank dropped from %d to %d at fill %v", prev, current, fill)
		}
		prev = current
	}
}

func TestClampFill(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-10, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{130, 100},
	}

	for _, tt := range tests {
		if got := ClampFill(tt.in); got != tt.want {
			t.Errorf("ClampFill(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusNormal, StatusWarning, StatusCritical} {
		if !ValidStatus(status) {
			t.Errorf("ValidStatus(%q) = false, want true", status)
		}
	}
	for _, status := range []string{"", "CRITICAL", "full", "ok"} {
		if ValidStatus(status) {
			t.Errorf("ValidStatus(%q) = true, want false", status)
		}
	}
}
