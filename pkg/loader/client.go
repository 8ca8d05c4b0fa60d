package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// TenantHeader carries the tenant name on every backend request.
const TenantHeader = "X-Bungee-Tenant"

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 15 * time.Second

const apiPrefix = "/api/v1/pricing-rules"

// maxBodyBytes caps response bodies; hierarchies run to a few MB at most.
var maxBodyBytes int64 = 64 << 20

var (
	// ErrNoBackend is returned when no base URL is configured.
	ErrNoBackend = errors.New("no backend configured")

	// ErrResponseTooLarge is returned when a body exceeds maxBodyBytes.
	ErrResponseTooLarge = errors.New("response too large")
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTenant sets the tenant header value.
func WithTenant(tenant string) ClientOption {
	return func(c *Client) {
		c.tenant = tenant
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		// Copy so a shared client (http.DefaultClient) is left untouched.
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// Client talks to the pricing-rules listing API. All Fetch methods degrade
// to empty results on failure; the *Payload variants report errors for
// callers that need to fall back to a cache.
type Client struct {
	baseURL string
	tenant  string
	http    *http.Client
}

// NewClient creates a client for baseURL (scheme and host, no path).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// HierarchyPath returns the API path and query for a hierarchy fetch.
func HierarchyPath(dim model.Dimension, nodeID string) (string, url.Values) {
	path := apiPrefix + "/" + dim.Plural() + "/hierarchy"
	q := url.Values{}
	if nodeID != "" {
		q.Set(string(dim)+"_node_id", nodeID)
	}
	return path, q
}

// FetchHierarchyPayload returns the raw hierarchy body.
func (c *Client) FetchHierarchyPayload(ctx context.Context, dim model.Dimension, nodeID string) ([]byte, error) {
	path, q := HierarchyPath(dim, nodeID)
	return c.get(ctx, path, q)
}

// FetchHierarchy fetches and transforms a hierarchy, rooted at nodeID when
// set. Any failure yields an empty forest.
func (c *Client) FetchHierarchy(ctx context.Context, dim model.Dimension, nodeID string) model.Forest {
	start := time.Now()
	data, err := c.FetchHierarchyPayload(ctx, dim, nodeID)
	if err != nil {
		debug.Warn("fetch %s hierarchy (node %q): %v", dim, nodeID, err)
		return model.Forest{}
	}
	forest := DecodeHierarchy(data)
	debug.LogTiming("FetchHierarchy "+string(dim), time.Since(start))
	return forest
}

type listEnvelope[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"total_items"`
}

type scenarioItem struct {
	ScenarioID  int    `json:"scenario_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type panelItem struct {
	PanelID        int    `json:"panel_id"`
	PanelName      string `json:"panel_name"`
	Comment        string `json:"comment"`
	Priority       int    `json:"priority"`
	ScenarioID     int    `json:"scenario_id"`
	ProductNodeID  NodeID `json:"product_node_id"`
	LocationNodeID NodeID `json:"location_node_id"`
}

type ruleItem struct {
	RuleID          int    `json:"rule_id"`
	PanelID         int    `json:"panel_id"`
	HardRuleRank    int    `json:"hard_rule_rank"`
	RuleSubTypeDesc string `json:"rule_sub_type_desc"`
	RuleDesc        string `json:"rule_desc"`
	Active          bool   `json:"active"`
}

// FetchScenarios lists scenarios, optionally filtered by a search string.
func (c *Client) FetchScenarios(ctx context.Context, search string) []model.Scenario {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var env listEnvelope[scenarioItem]
	if err := c.getJSON(ctx, apiPrefix+"/scenario", q, &env); err != nil {
		debug.Warn("fetch scenarios: %v", err)
		return nil
	}
	out := make([]model.Scenario, 0, len(env.Items))
	for _, it := range env.Items {
		out = append(out, model.Scenario{ID: it.ScenarioID, Name: it.Name, Description: it.Description})
	}
	return out
}

// FetchPanels lists the panels of a scenario.
func (c *Client) FetchPanels(ctx context.Context, scenarioID int, search string) []model.Panel {
	q := url.Values{}
	q.Set("scenario_id", strconv.Itoa(scenarioID))
	if search != "" {
		q.Set("search", search)
	}
	var env listEnvelope[panelItem]
	if err := c.getJSON(ctx, apiPrefix+"/panel", q, &env); err != nil {
		debug.Warn("fetch panels for scenario %d: %v", scenarioID, err)
		return nil
	}
	out := make([]model.Panel, 0, len(env.Items))
	for _, it := range env.Items {
		out = append(out, model.Panel{
			ID:             it.PanelID,
			Name:           it.PanelName,
			Description:    it.Comment,
			Priority:       it.Priority,
			ScenarioID:     it.ScenarioID,
			ProductNodeID:  string(it.ProductNodeID),
			LocationNodeID: string(it.LocationNodeID),
		})
	}
	return out
}

// FetchRules lists the rules of a panel.
func (c *Client) FetchRules(ctx context.Context, panelID int, search string) []model.Rule {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var env listEnvelope[ruleItem]
	path := fmt.Sprintf("%s/panel/%d/rules", apiPrefix, panelID)
	if err := c.getJSON(ctx, path, q, &env); err != nil {
		debug.Warn("fetch rules for panel %d: %v", panelID, err)
		return nil
	}
	out := make([]model.Rule, 0, len(env.Items))
	for _, it := range env.Items {
		out = append(out, model.Rule{
			ID:          it.RuleID,
			PanelID:     it.PanelID,
			RuleType:    it.RuleSubTypeDesc,
			Rank:        it.HardRuleRank,
			Description: it.RuleDesc,
			Active:      it.Active,
		})
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	data, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNoBackend
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tenant != "" {
		req.Header.Set(TenantHeader, c.tenant)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(data)) > maxBodyBytes {
		return nil, fmt.Errorf("GET %s: %w (limit %d bytes)", path, ErrResponseTooLarge, maxBodyBytes)
	}
	return data, nil
}
