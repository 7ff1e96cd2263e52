package query

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/weppcloud/gldash/internal/store"
)

// Target selects which dataset variant a request addresses.
type Target int

const (
	// Active addresses the scenario currently selected in the dashboard.
	Active Target = iota
	// Base addresses the unmodified run.
	Base
	// Named addresses an explicit scenario path.
	Named
)

func (t Target) String() string {
	switch t {
	case Active:
		return "active"
	case Base:
		return "base"
	case Named:
		return "named"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Poster is what the data manager, detectors and graph loaders depend on.
// A nil *Result means "no data available"; callers never retry.
type Poster interface {
	PostQueryEngine(ctx context.Context, p *Payload) *Result
	PostBaseQueryEngine(ctx context.Context, p *Payload) *Result
	PostQueryEngineForScenario(ctx context.Context, p *Payload, scenarioPath string) *Result
}

// Options configures a Client.
type Options struct {
	BaseURL string // e.g. https://wepp.cloud/query-engine
	RunID   string
	Config  string

	// Scenario reports the active scenario path at request time.
	Scenario func() string

	HTTPClient *http.Client
	Timeout    time.Duration
	Limiter    *rate.Limiter
	Cache      store.Storer
	Metrics    *Metrics
	Logger     zerolog.Logger
}

// Client is the Query Engine HTTP client.
type Client struct {
	endpoint string
	scenario func() string
	http     *http.Client
	timeout  time.Duration
	limiter  *rate.Limiter
	cache    store.Storer
	metrics  *Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewClient creates a client for one run.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	scenario := opts.Scenario
	if scenario == nil {
		scenario = func() string { return "" }
	}
	endpoint := opts.BaseURL + "/runs/" + url.PathEscape(opts.RunID)
	if opts.Config != "" {
		endpoint += "/" + url.PathEscape(opts.Config)
	}
	endpoint += "/query"

	return &Client{
		endpoint: endpoint,
		scenario: scenario,
		http:     hc,
		timeout:  opts.Timeout,
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      time.Now,
	}
}

// PostQueryEngine queries the active scenario.
func (c *Client) PostQueryEngine(ctx context.Context, p *Payload) *Result {
	return c.post(ctx, p, Active, c.scenario())
}

// PostBaseQueryEngine queries the base scenario.
func (c *Client) PostBaseQueryEngine(ctx context.Context, p *Payload) *Result {
	return c.post(ctx, p, Base, "")
}

// PostQueryEngineForScenario queries an arbitrary scenario path.
func (c *Client) PostQueryEngineForScenario(ctx context.Context, p *Payload, scenarioPath string) *Result {
	return c.post(ctx, p, Named, scenarioPath)
}

// URL returns the endpoint for a target/scenario pair.
func (c *Client) URL(target Target, scenarioPath string) string {
	if target == Base || scenarioPath == "" {
		return c.endpoint
	}
	return c.endpoint + "?" + url.Values{"pup": {scenarioPath}}.Encode()
}

func (c *Client) post(ctx context.Context, p *Payload, target Target, scenarioPath string) *Result {
	if target == Base {
		scenarioPath = ""
	}
	endpoint := c.URL(target, scenarioPath)
	log := c.log.With().Str("target", target.String()).Str("scenario", scenarioPath).Logger()

	body, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("query engine payload not encodable")
		c.metrics.request(target, "error")
		return nil
	}

	key := cacheKey(endpoint, body)
	if res := c.cached(key); res != nil {
		c.metrics.cacheHit()
		return res
	}

	raw, err := c.do(ctx, endpoint, body)
	if err != nil {
		log.Warn().Err(err).Str("url", endpoint).Msg("query engine request failed")
		c.metrics.request(target, "error")
		return nil
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Warn().Err(err).Str("url", endpoint).Msg("query engine returned malformed JSON")
		c.metrics.request(target, "error")
		return nil
	}
	if res.Records == nil {
		res.Records = []Record{}
	}
	c.metrics.request(target, "ok")
	c.remember(key, scenarioPath, endpoint, raw, len(res.Records))
	return &res
}

// errStatus is returned for non-2xx responses.
var errStatus = errors.New("unexpected status")

func (c *Client) do(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d: %.200s", errStatus, resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *Client) cached(key string) *Result {
	if c.cache == nil {
		return nil
	}
	hit, err := c.cache.GetResult(key)
	if err != nil || hit == nil {
		return nil
	}
	var res Result
	if err := json.Unmarshal([]byte(hit.Body), &res); err != nil {
		_ = c.cache.DeleteResult(key)
		return nil
	}
	if res.Records == nil {
		res.Records = []Record{}
	}
	return &res
}

func (c *Client) remember(key, scenarioPath, endpoint string, raw []byte, n int) {
	if c.cache == nil {
		return
	}
	err := c.cache.PutResult(&store.CachedResult{
		Key:       key,
		Scenario:  scenarioPath,
		Endpoint:  endpoint,
		Body:      string(raw),
		Records:   n,
		CreatedAt: c.now().UnixMilli(),
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("query result not cached")
	}
}

// ForgetScenario drops cached results for a scenario path.
func (c *Client) ForgetScenario(scenarioPath string) {
	if c.cache == nil {
		return
	}
	if _, err := c.cache.DeleteScenario(scenarioPath); err != nil {
		c.log.Debug().Err(err).Str("scenario", scenarioPath).Msg("scenario cache purge failed")
	}
}

func cacheKey(endpoint string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

var _ Poster = (*Client)(nil)
