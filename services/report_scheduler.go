package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/metrics"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report triggers recorded on DailyReportLog
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// reportRunTimeout bounds one scheduled report run
const reportRunTimeout = 2 * time.Minute

// ReportScheduler builds the daily report on a cron schedule and pushes it to LINE
type ReportScheduler struct {
	db       *gorm.DB
	reports  *ReportService
	notifier Notifier
	cron     *cron.Cron
}

// NewReportScheduler creates a scheduler whose cron expressions are evaluated in loc
func NewReportScheduler(db *gorm.DB, notifier Notifier, loc *time.Location) *ReportScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportScheduler{
		db:       db,
		reports:  NewReportService(db, loc),
		notifier: notifier,
		cron:     cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the daily job with spec (standard 5-field cron) and starts the scheduler
func (s *ReportScheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportRunTimeout)
		defer cancel()
		if _, err := s.Run(ctx, TriggerCron); err != nil {
			log.Printf("[cron] daily report failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid DAILY_REPORT_CRON %q: %w", spec, err)
	}

	s.cron.Start()
	log.Printf("[cron] daily report scheduled at %q", spec)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish
func (s *ReportScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Run builds the report for the current cycle, pushes it and records the outcome.
// A failed push is recorded on the log row rather than returned.
func (s *ReportScheduler) Run(ctx context.Context, trigger string) (*models.DailyReportLog, error) {
	from, to := s.reports.CurrentPeriod()

	report, err := s.reports.BuildDailyReport(ctx, from, to)
	if err != nil {
		metrics.DailyReports.WithLabelValues(trigger, "failed").Inc()
		return nil, fmt.Errorf("failed to build daily report: %w", err)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode daily report: %w", err)
	}

	entry := models.DailyReportLog{
		PeriodStart: from,
		PeriodEnd:   to,
		Trigger:     trigger,
		Payload:     datatypes.JSON(payload),
	}

	outcome := "delivered"
	if s.notifier == nil {
		msg := ErrNotifierDisabled.Error()
		entry.Error = &msg
		outcome = "skipped"
	} else if pushErr := s.notifier.Push(ctx, FormatDailyReport(report)); pushErr != nil {
		msg := pushErr.Error()
		entry.Error = &msg
		outcome = "failed"
		if errors.Is(pushErr, ErrNotifierDisabled) {
			outcome = "skipped"
		}
		log.Printf("[cron] failed to push daily report %s..%s: %v", from, to, pushErr)
	} else {
		entry.Delivered = true
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to save daily report log: %w", err)
	}

	metrics.DailyReports.WithLabelValues(trigger, outcome).Inc()
	log.Printf("[cron] daily report %s..%s %s (log %d)", from, to, outcome, entry.ID)
	return &entry, nil
}
