package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

func noop(context.Context) error { return nil }

func TestParseTime(t *testing.T) {
	h, m, err := parseTime("09:30")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if h != 9 || m != 30 {
		t.Fatalf("unexpected time %d:%d", h, m)
	}

	for _, bad := range []string{"9:30", "24:00", "12:60", "noon"} {
		if _, _, err := parseTime(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("09:00", "UTC", nil, nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
	if _, err := New("09:00", "Not/AZone", noop, nil); err == nil {
		t.Fatalf("expected error for bad timezone")
	}
	if _, err := New("9am", "UTC", noop, nil); err == nil {
		t.Fatalf("expected error for bad time")
	}
}

func TestUpdateTime(t *testing.T) {
	s, err := New("09:00", "UTC", noop, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.UpdateTime("25:00"); err == nil {
		t.Fatalf("expected error")
	}
	if s.Time() != "09:00" {
		t.Fatalf("invalid update must keep old time, got %s", s.Time())
	}
	if err := s.UpdateTime("18:45"); err != nil {
		t.Fatalf("UpdateTime: %v", err)
	}
	if s.Time() != "18:45" {
		t.Fatalf("expected 18:45, got %s", s.Time())
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Fatalf("expected one cron entry, got %d", n)
	}
}

func TestNextUsesLocation(t *testing.T) {
	s, err := New("07:15", "Europe/Rome", noop, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next().In(s.Location())
	if next.Hour() != 7 || next.Minute() != 15 {
		t.Fatalf("unexpected next run %v", next)
	}
	if !next.After(time.Now()) {
		t.Fatalf("next run should be in the future: %v", next)
	}
}

func TestRunLogsJobError(t *testing.T) {
	called := make(chan struct{}, 1)
	s, err := New("09:00", "UTC", func(ctx context.Context) error {
		called <- struct{}{}
		return errors.New("boom")
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.run()
	select {
	case <-called:
	default:
		t.Fatalf("job was not called")
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s, err := New("09:00", "UTC", noop, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	s.Stop()
	if s.ctx.Err() == nil {
		t.Fatalf("expected cancelled context")
	}
}
