package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
)

// MockLeadAPI
type MockLeadAPI struct {
	mock.Mock
}

func (m *MockLeadAPI) ListLeads(ctx context.Context, f entity.LeadFilter) ([]entity.Lead, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadAPI) GetLead(ctx context.Context, id int64) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadAPI) ListCampaigns(ctx context.Context, leadID int64) ([]entity.EmailCampaign, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.EmailCampaign), args.Error(1)
}

func (m *MockLeadAPI) ListWebsites(ctx context.Context, leadID int64) ([]entity.Website, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Website), args.Error(1)
}

func (m *MockLeadAPI) DashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DashboardStats), args.Error(1)
}

func (m *MockLeadAPI) StartSearch(ctx context.Context, q entity.SearchQuery) (*leadapi.SearchAck, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leadapi.SearchAck), args.Error(1)
}

func (m *MockLeadAPI) SendEmail(ctx context.Context, leadID int64, includeWebsite *bool) (*leadapi.SendEmailResult, error) {
	args := m.Called(ctx, leadID, includeWebsite)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leadapi.SendEmailResult), args.Error(1)
}

func (m *MockLeadAPI) CreateWebsite(ctx context.Context, leadID int64, templateType string) (*leadapi.CreateWebsiteResult, error) {
	args := m.Called(ctx, leadID, templateType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leadapi.CreateWebsiteResult), args.Error(1)
}

// MockInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(targets ...string) int {
	args := m.Called(targets)
	return args.Int(0)
}

func (m *MockInvalidator) Revalidate(ctx context.Context, targets ...string) error {
	args := m.Called(ctx, targets)
	return args.Error(0)
}

// recordingObserver keeps every settled record.
type recordingObserver struct {
	mu      sync.Mutex
	records []entity.ActionRecord
}

func (o *recordingObserver) ActionSettled(_ context.Context, rec entity.ActionRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, rec)
}

func (o *recordingObserver) all() []entity.ActionRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]entity.ActionRecord(nil), o.records...)
}

// fakeTimers captures scheduled callbacks so tests decide when they fire.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) Stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) get(i int) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i]
}

func (f *fakeTimers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
