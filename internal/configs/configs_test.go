package config

import (
	"reflect"
	"testing"
)

func TestParseReminderDefaults(t *testing.T) {
	cases := []struct {
		raw     string
		want    []int
		wantErr bool
	}{
		{raw: "7,1", want: []int{7, 1}},
		{raw: " 14 , 3 ,1 ", want: []int{14, 3, 1}},
		{raw: "", want: nil},
		{raw: "7,x", wantErr: true},
		{raw: "0", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseReminderDefaults(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseReminderDefaults(%q) err = nil, want error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseReminderDefaults(%q) err = %v", tc.raw, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseReminderDefaults(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_HOST", "0.0.0.0")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REMINDER_POLICY", "catch-up")

	cfg := Load()

	if cfg.AppURL != "0.0.0.0:9000" {
		t.Fatalf("AppURL = %q", cfg.AppURL)
	}
	if cfg.ReminderPolicy != "catch-up" {
		t.Fatalf("ReminderPolicy = %q", cfg.ReminderPolicy)
	}
	if cfg.SweepSchedule != "0 9 * * *" {
		t.Fatalf("SweepSchedule = %q", cfg.SweepSchedule)
	}
	if !reflect.DeepEqual(cfg.ReminderDefaults, []int{7, 1}) {
		t.Fatalf("ReminderDefaults = %v", cfg.ReminderDefaults)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("Location = %v", cfg.Location)
	}
}
