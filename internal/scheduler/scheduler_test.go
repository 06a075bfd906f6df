package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ridhampc123-lang/mango/internal/config"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/service/whatsapp"
)

type mockReports struct{ mock.Mock }

func (m *mockReports) BuildDailyReport(ctx context.Context, day time.Time, loc *time.Location) (*models.DailyReport, error) {
	args := m.Called(ctx, day, loc)
	r, _ := args.Get(0).(*models.DailyReport)
	return r, args.Error(1)
}

func (m *mockReports) Reconcile(ctx context.Context) (*models.ReconciliationReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*models.ReconciliationReport)
	return r, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	return m.Called(ctx, report).Error(0)
}

type mockMirror struct{ mock.Mock }

func (m *mockMirror) Mirror(ctx context.Context, day string, row []interface{}) (bool, error) {
	args := m.Called(ctx, day, row)
	return args.Bool(0), args.Error(1)
}

type mockMessaging struct{ mock.Mock }

func (m *mockMessaging) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockMessaging) SendFarmerStatement(ctx context.Context, farmer models.Farmer) error {
	return m.Called(ctx, farmer).Error(0)
}

func testConfig(owner string) config.Config {
	return config.Config{
		WhatsApp: config.WhatsAppConfig{OwnerNumber: owner},
		Reporting: config.ReportingConfig{
			CronSchedule:          "0 21 * * *",
			ReconcileCronSchedule: "30 2 * * *",
			Timezone:              "UTC",
		},
	}
}

func TestRunDailyReport(t *testing.T) {
	now := time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC)
	report := &models.DailyReport{Date: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), PurchasesCount: 2}

	reports := new(mockReports)
	store := new(mockStore)
	mirror := new(mockMirror)
	messaging := new(mockMessaging)

	reports.On("BuildDailyReport", mock.Anything, now, time.UTC).Return(report, nil)
	store.On("SaveDailyReport", mock.Anything, *report).Return(nil)
	mirror.On("Mirror", mock.Anything, "2026-05-10", mock.Anything).Return(true, nil)
	messaging.On("SendOutbound", mock.Anything, mock.MatchedBy(func(req models.OutboundMessageRequest) bool {
		return req.To == "919000000000" && assert.Contains(t, req.Message, "Daily report 2026-05-10")
	})).Return(nil)

	s, err := NewScheduler(testConfig("919000000000"), reports, store, mirror, messaging, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	require.NoError(t, s.RunDailyReport(context.Background()))
	reports.AssertExpectations(t)
	store.AssertExpectations(t)
	mirror.AssertExpectations(t)
	messaging.AssertExpectations(t)
}

func TestRunDailyReport_SideChannelsDoNotFail(t *testing.T) {
	report := &models.DailyReport{Date: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)}

	reports := new(mockReports)
	store := new(mockStore)
	mirror := new(mockMirror)
	messaging := new(mockMessaging)

	reports.On("BuildDailyReport", mock.Anything, mock.Anything, mock.Anything).Return(report, nil)
	store.On("SaveDailyReport", mock.Anything, *report).Return(nil)
	mirror.On("Mirror", mock.Anything, "2026-05-10", mock.Anything).Return(false, errors.New("sheets down"))
	messaging.On("SendOutbound", mock.Anything, mock.Anything).Return(whatsapp.ErrDisabled)

	s, err := NewScheduler(testConfig("919000000000"), reports, store, mirror, messaging, nil)
	require.NoError(t, err)

	assert.NoError(t, s.RunDailyReport(context.Background()))
	messaging.AssertExpectations(t)
}

func TestRunDailyReport_NoOwnerNoMirror(t *testing.T) {
	report := &models.DailyReport{Date: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)}

	reports := new(mockReports)
	store := new(mockStore)
	messaging := new(mockMessaging)

	reports.On("BuildDailyReport", mock.Anything, mock.Anything, mock.Anything).Return(report, nil)
	store.On("SaveDailyReport", mock.Anything, *report).Return(nil)

	s, err := NewScheduler(testConfig(""), reports, store, nil, messaging, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunDailyReport(context.Background()))
	messaging.AssertNotCalled(t, "SendOutbound", mock.Anything, mock.Anything)
}

func TestRunDailyReport_SaveFailure(t *testing.T) {
	report := &models.DailyReport{}

	reports := new(mockReports)
	store := new(mockStore)
	reports.On("BuildDailyReport", mock.Anything, mock.Anything, mock.Anything).Return(report, nil)
	store.On("SaveDailyReport", mock.Anything, *report).Return(errors.New("disk full"))

	s, err := NewScheduler(testConfig(""), reports, store, nil, nil, nil)
	require.NoError(t, err)

	assert.ErrorContains(t, s.RunDailyReport(context.Background()), "disk full")
}

func TestRunReconcile(t *testing.T) {
	reports := new(mockReports)
	reports.On("Reconcile", mock.Anything).Return(&models.ReconciliationReport{
		Violations: []models.InvariantViolation{{Entity: "farmer", ID: "f1", Rule: "pending_non_negative", Actual: -5}},
	}, nil).Once()
	reports.On("Reconcile", mock.Anything).Return(nil, errors.New("timeout")).Once()

	s, err := NewScheduler(testConfig(""), reports, new(mockStore), nil, nil, nil)
	require.NoError(t, err)

	assert.NoError(t, s.RunReconcile(context.Background()))
	assert.ErrorContains(t, s.RunReconcile(context.Background()), "timeout")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig("")
	cfg.Reporting.CronSchedule = "every evening"

	s, err := NewScheduler(cfg, new(mockReports), new(mockStore), nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(testConfig(""), new(mockReports), new(mockStore), nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
