package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-orchestrator/internal/cache"
	"github.com/xavierca1/lead-orchestrator/internal/entity"
	"github.com/xavierca1/lead-orchestrator/internal/infra/integration/leadapi"
	"github.com/xavierca1/lead-orchestrator/internal/usecase"
)

// fakeBackend serves the subset of the leads API the BFF calls.
type fakeBackend struct {
	mu     sync.Mutex
	leads  map[int64]*entity.Lead
	sites  map[int64][]entity.Website
	emails int
}

func newFakeBackend() *fakeBackend {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	email := "owner@smile.in"
	return &fakeBackend{
		leads: map[int64]*entity.Lead{
			3: {ID: 3, Name: "Smile Dental", Email: &email, Status: entity.LeadStatusNew, CreatedAt: t0.Add(time.Hour)},
			5: {ID: 5, Name: "No Mail Cafe", Status: entity.LeadStatusNew, CreatedAt: t0},
		},
		sites: map[int64][]entity.Website{},
	}
}

func (b *fakeBackend) emailsSent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emails
}

func (b *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(leadapi.HealthResult{Status: "healthy", Version: "1.0.0"})
	})
	r.Get("/api/leads", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []entity.Lead{}
		for _, l := range b.leads {
			out = append(out, *l)
		}
		json.NewEncoder(w).Encode(map[string]any{"count": len(out), "leads": out})
	})
	r.Get("/api/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		l, ok := b.leads[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Lead not found"}`))
			return
		}
		json.NewEncoder(w).Encode(l)
	})
	r.Post("/api/leads/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"searching","message":"Search started"}`))
	})
	r.Post("/api/emails/send/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		b.leads[id].EmailSent = true
		b.emails++
		w.Write([]byte(`{"status":"success","message":"Email sent"}`))
	})
	r.Get("/api/emails/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"count":0,"campaigns":[]}`))
	})
	r.Post("/api/websites/create/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		site := entity.Website{ID: int64(len(b.sites[id]) + 1), LeadID: id, TemplateType: r.URL.Query().Get("template_type"), WebsiteURL: fmt.Sprintf("https://sites.example/%d", id)}
		b.sites[id] = append(b.sites[id], site)
		b.leads[id].PrototypeCreated = true
		json.NewEncoder(w).Encode(map[string]string{"status": "success", "website_url": site.WebsiteURL, "message": "Website created"})
	})
	r.Get("/api/websites/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		json.NewEncoder(w).Encode(map[string]any{"count": len(b.sites[id]), "websites": b.sites[id]})
	})
	r.Get("/api/dashboard/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"total_leads":99,"emails_sent":1,"websites_created":0,"status_breakdown":{},"conversion_rate":0}`))
	})
	return r
}

type testServer struct {
	backend *fakeBackend
	router  chi.Router
	coord   *usecase.Coordinator
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	api := leadapi.NewClient(srv.URL+"/api", 2*time.Second)
	store := usecase.NewLeadStore(cache.New(time.Minute), api, 100)
	coord := usecase.NewCoordinator(store, time.Hour)
	t.Cleanup(coord.Stop)
	dispatcher := usecase.NewDispatcher(api, store, coord, 2*time.Second)
	views := usecase.NewLeadViews(store, dispatcher, 0)
	limiter := NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	r := chi.NewRouter()
	Set{
		Leads:     NewLeadHandler(views, dispatcher),
		Actions:   NewActionHandler(dispatcher),
		Dashboard: NewDashboardHandler(views),
		Refresh:   NewRefreshHandler(coord),
		Health:    NewHealthHandler(api, nil, nil),
		Limiter:   limiter,
	}.Mount(r)

	return &testServer{backend: backend, router: r, coord: coord}
}

func (s *testServer) do(method, target string, body []byte) (*httptest.ResponseRecorder, Response) {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func dataMap(t *testing.T, resp Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

// ============ READ ENDPOINTS ============

func TestListLeadsNewestFirst(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodGet, "/leads", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(2), data["count"])
	leads := data["leads"].([]any)
	assert.Equal(t, float64(3), leads[0].(map[string]any)["id"])
}

func TestListLeadsRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodGet, "/leads?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "limit")
}

func TestGetLeadDetail(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodGet, "/leads/5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	actions := dataMap(t, resp)["actions"].(map[string]any)
	assert.Equal(t, false, actions["can_send_email"])
	assert.Equal(t, "no email address", actions["send_email_blocked"])
}

func TestGetUnknownLeadKeepsBackendStatus(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodGet, "/leads/404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lead not found", resp.Message)
}

func TestDashboardLocalAndBackend(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), dataMap(t, resp)["total_leads"])

	w, resp = s.do(http.MethodGet, "/dashboard?source=backend", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(99), dataMap(t, resp)["total_leads"])
}

// ============ DISPATCH ENDPOINTS ============

func TestSendEmailWithoutAddressIs400(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodPost, "/leads/5/email", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "no email address")
	assert.Equal(t, 0, s.backend.emailsSent())
}

func TestSendEmailAcceptedThenSettles(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodPost, "/leads/3/email?include_website=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := dataMap(t, resp)["id"].(string)
	assert.Equal(t, "/actions/"+id, w.Header().Get("Location"))

	w, resp = s.do(http.MethodGet, "/actions/"+id+"?wait=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "completed", dataMap(t, resp)["status"])

	s.coord.Wait()
	w, _ = s.do(http.MethodPost, "/leads/3/email", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, s.backend.emailsSent())
}

func TestSendEmailBadFlagIs400(t *testing.T) {
	s := newTestServer(t, 10)

	w, _ := s.do(http.MethodPost, "/leads/3/email?include_website=maybe", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWebsiteShowsUpInDetail(t *testing.T) {
	s := newTestServer(t, 10)
	w, _ := s.do(http.MethodGet, "/leads/5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(http.MethodPost, "/leads/5/websites?template_type=modern", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := dataMap(t, resp)["id"].(string)
	s.do(http.MethodGet, "/actions/"+id+"?wait=1", nil)
	s.coord.Wait()

	_, resp = s.do(http.MethodGet, "/leads/5", nil)
	detail := dataMap(t, resp)
	assert.Len(t, detail["websites"], 1)
	assert.Equal(t, true, detail["consistent"])
}

func TestStartSearchValidation(t *testing.T) {
	s := newTestServer(t, 10)

	w, resp := s.do(http.MethodPost, "/leads/search", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", resp.Message)

	w, resp = s.do(http.MethodPost, "/leads/search", []byte(`{"niche":"","location":"Pune"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "niche")

	w, _ = s.do(http.MethodPost, "/leads/search", []byte(`{"niche":"gyms","location":"Pune","radius_km":2000}`))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestUnknownActionIs404(t *testing.T) {
	s := newTestServer(t, 10)

	w, _ := s.do(http.MethodGet, "/actions/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, 10)
	s.do(http.MethodGet, "/leads", nil)

	w, resp := s.do(http.MethodPost, "/refresh", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, 1)

	w, _ := s.do(http.MethodPost, "/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := s.do(http.MethodPost, "/refresh", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, resp.Success)

	w, _ = s.do(http.MethodGet, "/leads", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ============ HEALTH ============

type downBackend struct{}

func (downBackend) Health(context.Context) (*leadapi.HealthResult, error) {
	return nil, &leadapi.NetworkError{Op: "GET /health", Err: errors.New("connection refused")}
}

type closedBroker struct{}

func (closedBroker) Healthy() bool { return false }

func TestHealthHealthyWithOptionalDepsOff(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "not configured", resp.Dependencies["database"])
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler(downBackend{}, nil, closedBroker{})

	w := httptest.NewRecorder()
	h.Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.True(t, strings.HasPrefix(resp.Dependencies["leads_api"], "unhealthy"))
	assert.Equal(t, "unhealthy: connection closed", resp.Dependencies["rabbitmq"])
}

// ============ HELPERS ============

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&usecase.ValidationError{Field: "niche", Message: "is required"}, http.StatusBadRequest},
		{&usecase.ConflictError{Message: "already sent"}, http.StatusConflict},
		{&leadapi.BackendError{StatusCode: 404, Detail: "Lead not found"}, http.StatusNotFound},
		{&leadapi.BackendError{StatusCode: 500, Detail: "boom"}, http.StatusBadGateway},
		{&leadapi.NetworkError{Op: "GET", Err: errors.New("timeout")}, http.StatusGatewayTimeout},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}

// TestLongPollReturnsPendingWhenWaitElapses - an unsettled handle is answered, not an error
func TestLongPollReturnsPendingWhenWaitElapses(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte(`{"status":"searching","message":"Search started"}`))
	}))
	defer backend.Close()
	defer close(release)

	api := leadapi.NewClient(backend.URL, 2*time.Second)
	store := usecase.NewLeadStore(cache.New(time.Minute), api, 100)
	coord := usecase.NewCoordinator(store, time.Hour)
	defer coord.Stop()
	dispatcher := usecase.NewDispatcher(api, store, coord, 2*time.Second)
	h := NewActionHandler(dispatcher)
	h.waitTimeout = 20 * time.Millisecond

	r := chi.NewRouter()
	r.Get("/actions/{handleId}", h.GetAction)
	handle := dispatcher.StartSearch(context.Background(), entity.SearchQuery{Niche: "gyms", Location: "Pune"})

	req := httptest.NewRequest(http.MethodGet, "/actions/"+handle.ID()+"?wait=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pending", resp.Data.(map[string]any)["status"])
}
