package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type fakeSettings map[string]string

func (f fakeSettings) Get(_ context.Context, _ uint64, key string) (string, error) {
	return f[key], nil
}

func assignment(level, shift string) *roster.Assignment {
	return &roster.Assignment{
		Ref:    roster.AttendableRef{Type: roster.TypeStudent, ID: 1},
		Level:  level,
		Shift:  shift,
		Active: true,
	}
}

func TestResolve(t *testing.T) {
	settings := fakeSettings{
		"primaria_morning_entry":   "08:00",
		"primaria_morning_exit":    "13:30",
		"primaria_afternoon_entry": "13:00",
		"primaria_afternoon_exit":  "18:30",
		"tolerance_minutes":        "10",
	}
	svc := NewResolver(settings)

	tests := []struct {
		name      string
		level     string
		shift     string
		wantEntry string
		wantExit  string
		wantShift string
	}{
		{"morning", LevelPrimaria, ShiftMorning, "08:00", "13:30", ShiftMorning},
		{"afternoon", LevelPrimaria, ShiftAfternoon, "13:00", "18:30", ShiftAfternoon},
		{"empty shift falls back to morning", LevelPrimaria, "", "08:00", "13:30", ShiftMorning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := svc.Resolve(context.Background(), 1, assignment(tt.level, tt.shift))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := w.Entry.String(); got != tt.wantEntry {
				t.Errorf("entry = %s, want %s", got, tt.wantEntry)
			}
			if got := w.Exit.String(); got != tt.wantExit {
				t.Errorf("exit = %s, want %s", got, tt.wantExit)
			}
			if w.Shift != tt.wantShift {
				t.Errorf("shift = %s, want %s", w.Shift, tt.wantShift)
			}
			if w.Tolerance != 10*time.Minute {
				t.Errorf("tolerance = %s, want 10m", w.Tolerance)
			}
		})
	}
}

func TestResolveConfigMissing(t *testing.T) {
	tests := []struct {
		name     string
		settings fakeSettings
		a        *roster.Assignment
	}{
		{"no level (classroom unassigned)", fakeSettings{}, assignment("", "")},
		{"unknown level", fakeSettings{}, assignment("universidad", "")},
		{"no window configured", fakeSettings{}, assignment(LevelSecundaria, ShiftMorning)},
		{"entry only", fakeSettings{"secundaria_morning_entry": "07:45"}, assignment(LevelSecundaria, ShiftMorning)},
		{"malformed clock value", fakeSettings{
			"secundaria_morning_entry": "7h45",
			"secundaria_morning_exit":  "15:00",
		}, assignment(LevelSecundaria, ShiftMorning)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.settings).Resolve(context.Background(), 1, tt.a)
			if !IsConfigMissing(err) {
				t.Fatalf("want CONFIG_MISSING, got %v", err)
			}
		})
	}
}

func TestToleranceDefault(t *testing.T) {
	settings := fakeSettings{
		"inicial_morning_entry": "08:30",
		"inicial_morning_exit":  "12:30",
	}
	w, err := NewResolver(settings).Resolve(context.Background(), 1, assignment(LevelInicial, ShiftMorning))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Tolerance != DefaultToleranceMinutes*time.Minute {
		t.Errorf("tolerance = %s, want default %dm", w.Tolerance, DefaultToleranceMinutes)
	}
}

func TestToleranceMalformedFallsBack(t *testing.T) {
	settings := fakeSettings{
		"inicial_morning_entry": "08:30",
		"inicial_morning_exit":  "12:30",
		"tolerance_minutes":     "lots",
	}
	w, err := NewResolver(settings).Resolve(context.Background(), 1, assignment(LevelInicial, ShiftMorning))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if w.Tolerance != DefaultToleranceMinutes*time.Minute {
		t.Errorf("tolerance = %s, want default", w.Tolerance)
	}
}

func TestLastExitClock(t *testing.T) {
	settings := fakeSettings{
		"inicial_morning_exit":    "12:30",
		"primaria_morning_exit":   "13:30",
		"primaria_afternoon_exit": "18:45",
	}
	svc := NewResolver(settings)

	ct, ok, err := svc.LastExitClock(context.Background(), 1)
	if err != nil {
		t.Fatalf("LastExitClock: %v", err)
	}
	if !ok {
		t.Fatal("want ok=true")
	}
	if ct.String() != "18:45" {
		t.Errorf("last exit = %s, want 18:45", ct.String())
	}
}

func TestLastExitClockUnconfigured(t *testing.T) {
	_, ok, err := NewResolver(fakeSettings{}).LastExitClock(context.Background(), 1)
	if err != nil {
		t.Fatalf("LastExitClock: %v", err)
	}
	if ok {
		t.Fatal("want ok=false with no exit settings")
	}
}

func TestParseClock(t *testing.T) {
	if _, err := ParseClock("25:00"); err == nil {
		t.Error("25:00 should not parse")
	}
	ct, err := ParseClock("07:05")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	lima, _ := time.LoadLocation("America/Lima")
	day := time.Date(2025, 4, 10, 0, 0, 0, 0, lima)
	at := ct.On(day)
	if at.Hour() != 7 || at.Minute() != 5 || at.Location() != lima {
		t.Errorf("On() = %v", at)
	}
}
