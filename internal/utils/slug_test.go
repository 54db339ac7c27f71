package utils

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Refrigerator Repair":    "refrigerator-repair",
		"Washer & Dryer Repair":  "washer-and-dryer-repair",
		"AC Service / Repair":    "ac-service-repair",
		"  Geyser   Repair  ":    "geyser-repair",
		"O'Brien's Maintenance":  "obriens-maintenance",
		"Déjà-vu":                "d-j-vu",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
