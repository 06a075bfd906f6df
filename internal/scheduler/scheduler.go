package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/config"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/service/reporting"
	"github.com/ridhampc123-lang/mango/internal/service/whatsapp"
)

const jobTimeout = 2 * time.Minute

// Reports is the reporting surface the scheduled jobs need.
type Reports interface {
	BuildDailyReport(ctx context.Context, day time.Time, loc *time.Location) (*models.DailyReport, error)
	Reconcile(ctx context.Context) (*models.ReconciliationReport, error)
}

// Mirror copies a daily report row somewhere outside the database.
type Mirror interface {
	Mirror(ctx context.Context, day string, row []interface{}) (bool, error)
}

// Scheduler runs the daily report and reconciliation jobs.
type Scheduler struct {
	cron        *cron.Cron
	cfg         config.ReportingConfig
	loc         *time.Location
	reports     Reports
	store       repository.ReportRepository
	mirror      Mirror
	messaging   whatsapp.MessagingService
	ownerNumber string
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduler creates a new scheduler instance. mirror may be nil.
func NewScheduler(cfg config.Config, reports Reports, store repository.ReportRepository, mirror Mirror, messaging whatsapp.MessagingService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if messaging == nil {
		messaging = whatsapp.DisabledService{}
	}

	loc, err := cfg.Reporting.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		cfg:         cfg.Reporting,
		loc:         loc,
		reports:     reports,
		store:       store,
		mirror:      mirror,
		messaging:   messaging,
		ownerNumber: cfg.WhatsApp.OwnerNumber,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.job("daily_report", s.RunDailyReport)); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReconcileCronSchedule, s.job("reconcile", s.RunReconcile)); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", s.cfg.ReconcileCronSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("daily_report", s.cfg.CronSchedule),
		zap.String("reconcile", s.cfg.ReconcileCronSchedule),
		zap.String("timezone", s.loc.String()),
	)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler jobs still running at shutdown")
	}
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := s.now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("took", s.now().Sub(started)))
	}
}

// RunDailyReport builds today's report, stores it, mirrors it and sends it to the owner.
// Mirror and messaging failures are logged; only build and store failures are returned.
func (s *Scheduler) RunDailyReport(ctx context.Context) error {
	report, err := s.reports.BuildDailyReport(ctx, s.now(), s.loc)
	if err != nil {
		return fmt.Errorf("build daily report: %w", err)
	}

	if err := s.store.SaveDailyReport(ctx, *report); err != nil {
		return fmt.Errorf("save daily report: %w", err)
	}

	day := report.Date.In(s.loc).Format("2006-01-02")
	if s.mirror != nil {
		written, err := s.mirror.Mirror(ctx, day, reporting.DailyReportRow(*report))
		if err != nil {
			s.logger.Warn("daily report not mirrored", zap.String("day", day), zap.Error(err))
		} else if written {
			s.logger.Info("daily report mirrored", zap.String("day", day))
		}
	}

	if s.ownerNumber == "" {
		return nil
	}
	err = s.messaging.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      s.ownerNumber,
		Message: reporting.FormatDailyReport(*report),
	})
	switch {
	case errors.Is(err, whatsapp.ErrDisabled):
		s.logger.Debug("whatsapp disabled, daily report not sent")
	case err != nil:
		s.logger.Warn("daily report not sent", zap.String("day", day), zap.Error(err))
	}
	return nil
}

// RunReconcile checks the ledger and logs every violation found.
func (s *Scheduler) RunReconcile(ctx context.Context) error {
	report, err := s.reports.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, v := range report.Violations {
		s.logger.Warn("ledger violation",
			zap.String("entity", v.Entity),
			zap.String("id", v.ID),
			zap.String("rule", v.Rule),
			zap.Float64("expected", v.Expected),
			zap.Float64("actual", v.Actual),
		)
	}
	return nil
}
