package rfctime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cozyartz/etchNFT/pkg/utils/rfctime"
)

func TestRFC3339_MarshalJSON(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 250_000_000, time.UTC)
	got, err := json.Marshal(rfctime.RFC3339(at))
	if err != nil {
		t.Fatal(err)
	}
	if want := `"2025-03-01T12:30:00.25+00:00"`; string(got) != want {
		t.Errorf("marshalled %s, want %s", got, want)
	}
}

func TestRFC3339_UnmarshalJSON(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	for name, input := range map[string]string{
		"utc with Z":     `"2025-03-01T12:30:00Z"`,
		"numeric offset": `"2025-03-01T21:30:00+09:00"`,
		"fractional":     `"2025-03-01T12:30:00.000Z"`,
	} {
		t.Run(name, func(t *testing.T) {
			var got rfctime.RFC3339
			if err := json.Unmarshal([]byte(input), &got); err != nil {
				t.Fatal(err)
			}
			if !got.Time().Equal(want) {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}

	t.Run("null keeps the pointer nil", func(t *testing.T) {
		var body struct {
			At *rfctime.RFC3339 `json:"at"`
		}
		if err := json.Unmarshal([]byte(`{"at": null}`), &body); err != nil {
			t.Fatal(err)
		}
		if body.At != nil {
			t.Errorf("got %s", body.At)
		}
	})

	t.Run("date only is rejected", func(t *testing.T) {
		var got rfctime.RFC3339
		if err := json.Unmarshal([]byte(`"2025-03-01"`), &got); err == nil {
			t.Error("expected error")
		}
	})
}
