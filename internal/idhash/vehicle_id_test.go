package idhash

import (
	"regexp"
	"testing"
)

var vehicleIDPattern = regexp.MustCompile(`^VH_\d{6}$`)

func TestComputeVehicleID(t *testing.T) {
	tests := []struct {
		name  string
		plate string
	}{
		{name: "regular plate", plate: "KAA 123A"},
		{name: "lowercase plate", plate: "kaa 123a"},
		{name: "empty plate", plate: ""},
		{name: "unicode plate", plate: "ÄB-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeVehicleID(tt.plate)

			if !vehicleIDPattern.MatchString(got) {
				t.Errorf("ComputeVehicleID(%q) = %q, want VH_ followed by 6 digits", tt.plate, got)
			}

			// Same plate must map to the same id across calls
			if again := ComputeVehicleID(tt.plate); again != got {
				t.Errorf("ComputeVehicleID not deterministic: %q != %q", got, again)
			}
		})
	}
}

func TestComputeVehicleID_CaseSensitive(t *testing.T) {
	upper := ComputeVehicleID("KAA 123A")
	lower := ComputeVehicleID("kaa 123a")

	if upper == lower {
		t.Errorf("expected different ids for differently-cased plates, both got %q", upper)
	}
}
