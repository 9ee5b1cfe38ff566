package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tally/internal/amqp"
	"tally/internal/report"
)

// ReportPublisher delivers rendered reports.
type ReportPublisher interface {
	PublishReport(ctx context.Context, m *amqp.ReportMessage) error
}

// ReportProcessorConfig holds configuration for the report processor
type ReportProcessorConfig struct {
	// CheckInterval is how often the schedule is checked (default: 1m)
	CheckInterval time.Duration

	// Currency is the code amounts are rendered with (default: AED)
	Currency string
}

func DefaultReportProcessorConfig() ReportProcessorConfig {
	return ReportProcessorConfig{
		CheckInterval: time.Minute,
		Currency:      "AED",
	}
}

// ReportProcessor publishes the weekly report whenever its schedule comes
// due.
type ReportProcessor struct {
	ledger    *LedgerService
	publisher ReportPublisher
	schedule  ReportSchedule
	config    ReportProcessorConfig

	mu      sync.Mutex
	lastRun time.Time
}

func NewReportProcessor(ledger *LedgerService, publisher ReportPublisher, schedule ReportSchedule, config ReportProcessorConfig) *ReportProcessor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultReportProcessorConfig().CheckInterval
	}
	if config.Currency == "" {
		config.Currency = DefaultReportProcessorConfig().Currency
	}
	return &ReportProcessor{
		ledger:    ledger,
		publisher: publisher,
		schedule:  schedule,
		config:    config,
	}
}

// ProcessDue publishes the weekly report if a slot has passed since the last
// delivery. It reports whether a report was sent.
func (p *ReportProcessor) ProcessDue(ctx context.Context, now time.Time) (bool, error) {
	if p.ledger == nil || p.publisher == nil {
		return false, fmt.Errorf("processor not properly initialized")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.schedule.IsDue(p.lastRun, now) {
		return false, nil
	}

	w, err := p.ledger.WeeklyReport(ctx)
	if err != nil {
		return false, fmt.Errorf("build weekly report: %w", err)
	}
	text := report.RenderWeekly(w, p.config.Currency)
	msg := amqp.NewReportMessage("weekly", w.Month.Prefix(), text)
	if err := p.publisher.PublishReport(ctx, msg); err != nil {
		return false, fmt.Errorf("publish weekly report: %w", err)
	}

	p.lastRun = now
	slog.InfoContext(ctx, "Weekly report published",
		"report_id", msg.ID,
		"month", msg.Period,
		"next_run", p.schedule.Next(now).Format(time.RFC3339))
	return true, nil
}

// Run checks the schedule every CheckInterval until ctx is done. Failed
// deliveries are retried on the next tick.
func (p *ReportProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Report processor started",
		"schedule", p.schedule.String(),
		"check_interval", p.config.CheckInterval)

	p.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Report processor stopped", "reason", ctx.Err())
			return nil
		case now := <-ticker.C:
			p.tick(ctx, now)
		}
	}
}

func (p *ReportProcessor) tick(ctx context.Context, now time.Time) {
	if _, err := p.ProcessDue(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Weekly report failed", "error", err)
	}
}
