package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xavierca1/lead-orchestrator/internal/cache"
	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

// Client talks to the lead generation backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logrus.WithField("component", "leadapi"),
	}
}

func (c *Client) ListLeads(ctx context.Context, f entity.LeadFilter) ([]entity.Lead, error) {
	var out leadsResponse
	path := "/leads"
	if q := cache.FilterQuery(f).Encode(); q != "" {
		path += "?" + q
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Leads == nil {
		out.Leads = []entity.Lead{}
	}
	return out.Leads, nil
}

func (c *Client) GetLead(ctx context.Context, id int64) (*entity.Lead, error) {
	var out entity.Lead
	if err := c.do(ctx, http.MethodGet, "/leads/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSearch asks the backend to start a search job. The answer only means
// the job was accepted.
func (c *Client) StartSearch(ctx context.Context, q entity.SearchQuery) (*SearchAck, error) {
	var out SearchAck
	if err := c.do(ctx, http.MethodPost, "/leads/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendEmail(ctx context.Context, leadID int64, includeWebsite *bool) (*SendEmailResult, error) {
	path := "/emails/send/" + strconv.FormatInt(leadID, 10)
	if includeWebsite != nil {
		path += "?include_website=" + strconv.FormatBool(*includeWebsite)
	}
	var out SendEmailResult
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCampaigns(ctx context.Context, leadID int64) ([]entity.EmailCampaign, error) {
	var out campaignsResponse
	if err := c.do(ctx, http.MethodGet, "/emails/"+strconv.FormatInt(leadID, 10), nil, &out); err != nil {
		return nil, err
	}
	if out.Campaigns == nil {
		out.Campaigns = []entity.EmailCampaign{}
	}
	return out.Campaigns, nil
}

func (c *Client) CreateWebsite(ctx context.Context, leadID int64, templateType string) (*CreateWebsiteResult, error) {
	path := fmt.Sprintf("/websites/create/%d?%s", leadID, url.Values{"template_type": {templateType}}.Encode())
	var out CreateWebsiteResult
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWebsites(ctx context.Context, leadID int64) ([]entity.Website, error) {
	var out websitesResponse
	if err := c.do(ctx, http.MethodGet, "/websites/"+strconv.FormatInt(leadID, 10), nil, &out); err != nil {
		return nil, err
	}
	if out.Websites == nil {
		out.Websites = []entity.Website{}
	}
	return out.Websites, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	var out entity.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var out HealthResult
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	c.setHeaders(req, in != nil)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &BackendError{StatusCode: resp.StatusCode, Detail: parseDetail(resp.StatusCode, raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}
