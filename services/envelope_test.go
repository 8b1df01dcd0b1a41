package services

import (
	"testing"
	"time"
)

const validEnvelope = `{
	"body": {
		"Temperature": 23.125,
		"Humidity": 48.5,
		"FlammableGases": 120.75,
		"TVOC": 310.0625,
		"CO": 2.5,
		"BatteryLife": 87
	},
	"enqueuedTime": "Tue Sep 09 2025 13:02:14 GMT-0500 (Central Daylight Time)"
}`

func TestParseEnvelopeRecoversAllFields(t *testing.T) {
	env := ParseEnvelope(validEnvelope)
	if env == nil {
		t.Fatal("expected envelope, got nil")
	}
	// Values chosen to be exactly representable, so equality is exact.
	if env.Body.Temperature != 23.125 {
		t.Errorf("Temperature = %v, want 23.125", env.Body.Temperature)
	}
	if env.Body.Humidity != 48.5 {
		t.Errorf("Humidity = %v, want 48.5", env.Body.Humidity)
	}
	if env.Body.FlammableGases != 120.75 {
		t.Errorf("FlammableGases = %v, want 120.75", env.Body.FlammableGases)
	}
	if env.Body.TVOC != 310.0625 {
		t.Errorf("TVOC = %v, want 310.0625", env.Body.TVOC)
	}
	if env.Body.CO != 2.5 {
		t.Errorf("CO = %v, want 2.5", env.Body.CO)
	}
	if env.EnqueuedTime == "" {
		t.Error("expected enqueuedTime to be carried through")
	}
}

func TestParseEnvelopeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"body": {`},
		{"not an object", `[1, 2, 3]`},
		{"missing body", `{"enqueuedTime": "x"}`},
		{"body not an object", `{"body": 5, "enqueuedTime": "x"}`},
		{"missing temperature", `{"body": {"Humidity":1,"FlammableGases":1,"TVOC":1,"CO":1}}`},
		{"missing humidity", `{"body": {"Temperature":1,"FlammableGases":1,"TVOC":1,"CO":1}}`},
		{"missing flammable", `{"body": {"Temperature":1,"Humidity":1,"TVOC":1,"CO":1}}`},
		{"missing tvoc", `{"body": {"Temperature":1,"Humidity":1,"FlammableGases":1,"CO":1}}`},
		{"missing co", `{"body": {"Temperature":1,"Humidity":1,"FlammableGases":1,"TVOC":1}}`},
		{"non-numeric field", `{"body": {"Temperature":"hot","Humidity":1,"FlammableGases":1,"TVOC":1,"CO":1}}`},
		{"empty string", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if env := ParseEnvelope(tc.raw); env != nil {
				t.Fatalf("ParseEnvelope(%q) = %+v, want nil", tc.raw, env)
			}
		})
	}
}

func TestParseEnqueuedInstant(t *testing.T) {
	got, ok := ParseEnqueuedInstant("Tue Sep 09 2025 13:02:14 GMT-0500 (Central Daylight Time)")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := time.Date(2025, 9, 9, 18, 2, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("instant = %v, want %v", got.UTC(), want)
	}
}

func TestParseEnqueuedInstantWithoutComment(t *testing.T) {
	got, ok := ParseEnqueuedInstant("Tue Sep 09 2025 13:02:14 GMT-0500")
	if !ok {
		t.Fatal("expected parse to succeed without timezone comment")
	}
	want := time.Date(2025, 9, 9, 18, 2, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("instant = %v, want %v", got.UTC(), want)
	}
}

func TestParseEnqueuedInstantRejectsCorruptTokens(t *testing.T) {
	cases := []string{
		"Xyz Sep 09 2025 13:02:14 GMT-0500 (Central Daylight Time)",
		"Tue Zep 09 2025 13:02:14 GMT-0500",
		"not a timestamp",
		"",
	}
	for _, raw := range cases {
		if _, ok := ParseEnqueuedInstant(raw); ok {
			t.Errorf("ParseEnqueuedInstant(%q) succeeded, want failure", raw)
		}
	}
}
