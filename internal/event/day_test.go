package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDayString(t *testing.T) {
	tests := []struct {
		day  Day
		want string
	}{
		{NewDay(2026, time.March, 7), "2026-03-07"},
		{NewDay(0, time.March, 7), "--03-07"},
		{Day{}, ""},
	}
	for _, tt := range tests {
		if got := tt.day.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.day, got, tt.want)
		}
		if tt.want == "" {
			continue
		}
		back, err := ParseDay(tt.want)
		if err != nil {
			t.Errorf("ParseDay(%q) error = %v", tt.want, err)
		} else if back != tt.day {
			t.Errorf("ParseDay(%q) = %#v, want %#v", tt.want, back, tt.day)
		}
	}
}

func TestParseDayInvalid(t *testing.T) {
	for _, s := range []string{"", "2026-13-01", "2026-02-30", "--02-30", "yesterday", "2026-1"} {
		if _, err := ParseDay(s); err == nil {
			t.Errorf("ParseDay(%q) error = nil", s)
		}
	}
}

func TestDayValid(t *testing.T) {
	if !NewDay(0, time.February, 29).Valid() {
		t.Error("year-less Feb 29 should be valid")
	}
	if NewDay(2027, time.February, 29).Valid() {
		t.Error("Feb 29 2027 should be invalid")
	}
	if (Day{}).Valid() {
		t.Error("zero day should be invalid")
	}
}

func TestDayJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Day `json:"d"`
	}{NewDay(0, time.July, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"d":"--07-04"}` {
		t.Errorf("Marshal = %s", data)
	}

	var got Day
	if err := json.Unmarshal([]byte(`"2026-10-17T20:00:00-07:00"`), &got); err != nil {
		t.Fatal(err)
	}
	if got != NewDay(2026, time.October, 17) {
		t.Errorf("Unmarshal timestamp = %v", got)
	}
}

func TestDayScan(t *testing.T) {
	var d Day
	if err := d.Scan([]byte("2026-05-01")); err != nil {
		t.Fatal(err)
	}
	if d != NewDay(2026, time.May, 1) {
		t.Errorf("Scan = %v", d)
	}
	v, _ := d.Value()
	if v != "2026-05-01" {
		t.Errorf("Value = %v", v)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestDayResolve(t *testing.T) {
	now := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	if got := NewDay(0, time.March, 1).Resolve(now); got.Year() != 2027 {
		t.Errorf("Resolve year-less March = %v, want 2027", got)
	}
	if got := NewDay(2025, time.March, 1).Resolve(now); got.Year() != 2025 {
		t.Errorf("Resolve explicit year = %v, want 2025", got)
	}
	if !NewDay(2026, time.October, 20).Before(NewDay(0, time.January, 2), now) {
		t.Error("Oct 20 2026 should sort before a year-less Jan 2")
	}
}
