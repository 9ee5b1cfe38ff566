package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tally/internal/amqp"
)

func dubaiSchedule(t *testing.T) ReportSchedule {
	t.Helper()
	s, err := NewReportSchedule("Friday", 9, "Asia/Dubai")
	if err != nil {
		t.Fatalf("NewReportSchedule() error = %v", err)
	}
	return s
}

func TestNewReportSchedule(t *testing.T) {
	tests := []struct {
		name    string
		weekday string
		hour    int
		tz      string
		wantErr bool
	}{
		{"full name", "friday", 9, "UTC", false},
		{"short name", "Mon", 0, "Europe/Rome", false},
		{"unknown day", "funday", 9, "UTC", true},
		{"hour too large", "friday", 24, "UTC", true},
		{"negative hour", "friday", -1, "UTC", true},
		{"unknown zone", "friday", 9, "Mars/Olympus", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReportSchedule(tt.weekday, tt.hour, tt.tz)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewReportSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportSchedule_PrevNext(t *testing.T) {
	s := dubaiSchedule(t)
	dubai := s.Location

	tests := []struct {
		name     string
		now      time.Time
		wantPrev time.Time
		wantNext time.Time
	}{
		{
			name:     "midweek",
			now:      time.Date(2026, 2, 11, 12, 0, 0, 0, dubai), // Wednesday
			wantPrev: time.Date(2026, 2, 6, 9, 0, 0, 0, dubai),
			wantNext: time.Date(2026, 2, 13, 9, 0, 0, 0, dubai),
		},
		{
			name:     "friday before the hour",
			now:      time.Date(2026, 2, 13, 8, 59, 0, 0, dubai),
			wantPrev: time.Date(2026, 2, 6, 9, 0, 0, 0, dubai),
			wantNext: time.Date(2026, 2, 13, 9, 0, 0, 0, dubai),
		},
		{
			name:     "exactly on the slot",
			now:      time.Date(2026, 2, 13, 9, 0, 0, 0, dubai),
			wantPrev: time.Date(2026, 2, 13, 9, 0, 0, 0, dubai),
			wantNext: time.Date(2026, 2, 20, 9, 0, 0, 0, dubai),
		},
		{
			name:     "utc input",
			now:      time.Date(2026, 2, 13, 5, 30, 0, 0, time.UTC), // 09:30 in Dubai
			wantPrev: time.Date(2026, 2, 13, 9, 0, 0, 0, dubai),
			wantNext: time.Date(2026, 2, 20, 9, 0, 0, 0, dubai),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Prev(tt.now); !got.Equal(tt.wantPrev) {
				t.Errorf("Prev() = %v, want %v", got, tt.wantPrev)
			}
			if got := s.Next(tt.now); !got.Equal(tt.wantNext) {
				t.Errorf("Next() = %v, want %v", got, tt.wantNext)
			}
		})
	}
}

func TestReportSchedule_IsDue(t *testing.T) {
	s := dubaiSchedule(t)
	dubai := s.Location
	slot := time.Date(2026, 2, 13, 9, 0, 0, 0, dubai)

	tests := []struct {
		name    string
		lastRun time.Time
		now     time.Time
		want    bool
	}{
		{"never run, just after slot", time.Time{}, slot.Add(2 * time.Minute), true},
		{"never run, long after slot", time.Time{}, slot.Add(3 * time.Hour), false},
		{"ran last week", slot.AddDate(0, 0, -7), slot.Add(time.Minute), true},
		{"already ran this slot", slot.Add(time.Minute), slot.Add(10 * time.Minute), false},
		{"ran last week, slot not reached", slot.AddDate(0, 0, -7), slot.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsDue(tt.lastRun, tt.now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingReports struct {
	mu       sync.Mutex
	messages []*amqp.ReportMessage
	err      error
}

func (r *recordingReports) PublishReport(_ context.Context, m *amqp.ReportMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, m)
	return nil
}

func TestReportProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)
	mustSetBalance(t, svc, "1000")
	if _, err := svc.Spend(ctx, dec("120"), "food", "groceries"); err != nil {
		t.Fatalf("Spend() error = %v", err)
	}

	schedule, err := NewReportSchedule("saturday", 10, "UTC")
	if err != nil {
		t.Fatalf("NewReportSchedule() error = %v", err)
	}
	pub := &recordingReports{err: errors.New("broker down")}
	p := NewReportProcessor(svc, pub, schedule, ReportProcessorConfig{})

	// The test clock sits on Saturday 2026-02-14 10:00 UTC, right at the slot.
	now := clock.Now().Add(time.Minute)

	if sent, err := p.ProcessDue(ctx, now); err == nil || sent {
		t.Fatalf("ProcessDue() with a failing publisher = %v, %v", sent, err)
	}

	pub.err = nil
	sent, err := p.ProcessDue(ctx, now)
	if err != nil || !sent {
		t.Fatalf("ProcessDue() = %v, %v, want a delivery", sent, err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d reports, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Kind != "weekly" || msg.Period != "2026-02" {
		t.Errorf("report = %+v", msg)
	}
	if !strings.Contains(msg.Text, "AED 120.00") {
		t.Errorf("report text misses the spend:\n%s", msg.Text)
	}

	if sent, _ := p.ProcessDue(ctx, now.Add(time.Hour)); sent {
		t.Error("report sent twice for one slot")
	}
	if sent, _ := p.ProcessDue(ctx, now.AddDate(0, 0, 7)); !sent {
		t.Error("next week's slot was not delivered")
	}
}

func TestReportProcessor_NotInitialized(t *testing.T) {
	p := NewReportProcessor(nil, nil, ReportSchedule{}, DefaultReportProcessorConfig())
	if _, err := p.ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("ProcessDue() should fail without a ledger and publisher")
	}
}

func TestReportProcessor_RunStopsWithContext(t *testing.T) {
	svc, _, _ := newTestService(t)
	p := NewReportProcessor(svc, &recordingReports{}, ReportSchedule{Weekday: time.Monday}, ReportProcessorConfig{CheckInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
