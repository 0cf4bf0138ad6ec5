package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/metrics"
)

const (
	DefaultTemplateType = "modern"
	DefaultRadiusKm     = 50
	MinRadiusKm         = 1
	MaxRadiusKm         = 500

	observerTimeout = 10 * time.Second
)

// Action is one operator intent.
type Action struct {
	Kind           entity.ActionKind
	LeadID         int64
	TemplateType   string
	IncludeWebsite *bool
	Search         entity.SearchQuery
}

// Key identifies the in-flight slot the action occupies. Searches have no
// lead, so the normalized niche and location stand in for it.
func (a Action) Key() string {
	if a.Kind == entity.ActionStartSearch {
		return fmt.Sprintf("%s:%s|%s", a.Kind,
			strings.ToLower(strings.TrimSpace(a.Search.Niche)),
			strings.ToLower(strings.TrimSpace(a.Search.Location)))
	}
	return fmt.Sprintf("%s:%d", a.Kind, a.LeadID)
}

// normalize applies defaults and checks the inputs that need no lookup.
func (a Action) normalize() (Action, error) {
	switch a.Kind {
	case entity.ActionSendEmail:
		if a.LeadID <= 0 {
			return a, &ValidationError{Field: "lead_id", Message: "is required"}
		}
	case entity.ActionCreateWebsite:
		if a.LeadID <= 0 {
			return a, &ValidationError{Field: "lead_id", Message: "is required"}
		}
		a.TemplateType = strings.TrimSpace(a.TemplateType)
		if a.TemplateType == "" {
			a.TemplateType = DefaultTemplateType
		}
	case entity.ActionStartSearch:
		q := a.Search
		q.Niche = strings.TrimSpace(q.Niche)
		q.Location = strings.TrimSpace(q.Location)
		if q.Niche == "" {
			return a, &ValidationError{Field: "niche", Message: "is required"}
		}
		if q.Location == "" {
			return a, &ValidationError{Field: "location", Message: "is required"}
		}
		if q.BusinessType != nil {
			bt := strings.TrimSpace(*q.BusinessType)
			if bt == "" {
				q.BusinessType = nil
			} else {
				q.BusinessType = &bt
			}
		}
		q.RadiusKm = ClampRadius(q.RadiusKm)
		a.Search = q
	default:
		return a, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown action %q", a.Kind)}
	}
	return a, nil
}

// ClampRadius defaults an unset radius and bounds it to [MinRadiusKm, MaxRadiusKm].
func ClampRadius(km int) int {
	switch {
	case km == 0:
		return DefaultRadiusKm
	case km < MinRadiusKm:
		return MinRadiusKm
	case km > MaxRadiusKm:
		return MaxRadiusKm
	}
	return km
}

// Dispatcher issues mutating backend calls with at most one in flight per key.
type Dispatcher struct {
	api         LeadAPI
	store       *LeadStore
	coordinator Settler
	observers   []entity.ActionObserver
	timeout     time.Duration
	now         func() time.Time
	log         *logrus.Entry

	mu       sync.Mutex
	inFlight map[string]*Handle
	handles  map[string]*Handle

	wg sync.WaitGroup
}

func NewDispatcher(api LeadAPI, store *LeadStore, coordinator Settler, timeout time.Duration, observers ...entity.ActionObserver) *Dispatcher {
	return &Dispatcher{
		api:         api,
		store:       store,
		coordinator: coordinator,
		observers:   observers,
		timeout:     timeout,
		now:         time.Now,
		log:         logrus.WithField("component", "dispatcher"),
		inFlight:    make(map[string]*Handle),
		handles:     make(map[string]*Handle),
	}
}

func (d *Dispatcher) SendEmail(ctx context.Context, leadID int64, includeWebsite *bool) *Handle {
	return d.Dispatch(ctx, Action{Kind: entity.ActionSendEmail, LeadID: leadID, IncludeWebsite: includeWebsite})
}

func (d *Dispatcher) CreateWebsite(ctx context.Context, leadID int64, templateType string) *Handle {
	return d.Dispatch(ctx, Action{Kind: entity.ActionCreateWebsite, LeadID: leadID, TemplateType: templateType})
}

func (d *Dispatcher) StartSearch(ctx context.Context, q entity.SearchQuery) *Handle {
	return d.Dispatch(ctx, Action{Kind: entity.ActionStartSearch, Search: q})
}

// Dispatch claims the action's key and starts the backend call in the
// background. Local rejections come back as already-settled handles.
// ctx only bounds the precondition lookup; the backend call outlives it.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) *Handle {
	a, err := a.normalize()
	h := newHandle(a, a.Key(), d.now())
	if err != nil {
		return d.reject(h, err)
	}

	d.mu.Lock()
	if _, busy := d.inFlight[h.key]; busy {
		d.mu.Unlock()
		return d.reject(h, &ConflictError{Key: h.key, Message: fmt.Sprintf("%s already in progress", a.Kind)})
	}
	d.inFlight[h.key] = h
	d.handles[h.id] = h
	d.mu.Unlock()

	if err := d.precheck(ctx, a, h.key); err != nil {
		d.release(h.key)
		return d.reject(h, err)
	}

	metrics.RecordDispatch(a.Kind)
	d.log.WithFields(logrus.Fields{"handle": h.id, "key": h.key}).Info("action dispatched")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(h, a)
	}()
	return h
}

func (d *Dispatcher) precheck(ctx context.Context, a Action, key string) error {
	if a.Kind != entity.ActionSendEmail {
		return nil
	}
	lead, err := d.store.Lead(ctx, a.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %d: %w", a.LeadID, err)
	}
	if !lead.HasEmail() {
		return &ValidationError{Field: "email", Message: "lead has no email address"}
	}
	if lead.EmailSent {
		return &ConflictError{Key: key, Message: "email already sent to this lead"}
	}
	return nil
}

func (d *Dispatcher) run(h *Handle, a Action) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	result, message, err := d.call(ctx, a)
	metrics.RecordSettle(a.Kind)

	fields := logrus.Fields{"handle": h.id, "key": h.key}
	if err != nil {
		// failures leave the cache alone and free the key right away
		d.release(h.key)
		h.settle(entity.ActionFailed, nil, "", err, d.now())
		d.log.WithFields(fields).WithField("error_kind", KindOf(err)).Warnf("action failed: %v", err)
	} else {
		// invalidate before the key is freed so a follow-up dispatch checks
		// its preconditions against fresh data
		d.coordinator.ActionSucceeded(a.Kind, a.LeadID)
		d.release(h.key)
		h.settle(entity.ActionCompleted, result, message, nil, d.now())
		d.log.WithFields(fields).Info("action completed")
	}
	d.notify(h.Record())
}

func (d *Dispatcher) call(ctx context.Context, a Action) (any, string, error) {
	switch a.Kind {
	case entity.ActionSendEmail:
		res, err := d.api.SendEmail(ctx, a.LeadID, a.IncludeWebsite)
		if err != nil {
			return nil, "", err
		}
		return res, res.Message, nil
	case entity.ActionCreateWebsite:
		res, err := d.api.CreateWebsite(ctx, a.LeadID, a.TemplateType)
		if err != nil {
			return nil, "", err
		}
		site := entity.Website{
			LeadID:       a.LeadID,
			TemplateType: a.TemplateType,
			WebsiteURL:   res.WebsiteURL,
			CreatedAt:    d.now(),
		}
		return site, res.Message, nil
	case entity.ActionStartSearch:
		ack, err := d.api.StartSearch(ctx, a.Search)
		if err != nil {
			return nil, "", err
		}
		return ack, ack.Message, nil
	}
	return nil, "", fmt.Errorf("unsupported action %q", a.Kind)
}

func (d *Dispatcher) reject(h *Handle, err error) *Handle {
	status := entity.ActionRejected
	if k := KindOf(err); k != ErrKindValidation && k != ErrKindConflict {
		status = entity.ActionFailed
	}
	h.settle(status, nil, "", err, d.now())

	d.mu.Lock()
	d.handles[h.id] = h
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"handle": h.id, "key": h.key}).Infof("action %s: %v", status, err)

	// observers may reach the database, the broker or SMTP; the caller only
	// needs the settled handle
	rec := h.Record()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.notify(rec)
	}()
	return h
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inFlight, key)
	d.mu.Unlock()
}

func (d *Dispatcher) notify(rec entity.ActionRecord) {
	if len(d.observers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()
	for _, o := range d.observers {
		o.ActionSettled(ctx, rec)
	}
}

// Wait blocks until running actions and pending observer notifications are
// done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Handle looks up a dispatch by id.
func (d *Dispatcher) Handle(id string) (*Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[id]
	return h, ok
}

// InFlight reports whether kind is pending for the lead.
func (d *Dispatcher) InFlight(kind entity.ActionKind, leadID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[Action{Kind: kind, LeadID: leadID}.Key()]
	return ok
}

// Prune forgets settled handles older than retention.
func (d *Dispatcher) Prune(retention time.Duration) int {
	cutoff := d.now().Add(-retention)
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for id, h := range d.handles {
		if h.settledBefore(cutoff) {
			delete(d.handles, id)
			n++
		}
	}
	return n
}
