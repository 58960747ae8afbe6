// Package metaapi is the outbound client for the Meta Graph API. It owns
// request shaping, the access token fallback chain, cursor pagination and
// retry with exponential backoff.
package metaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/appcontext"
	"github.com/adpulse/adsync/pkg/metrics"
	"github.com/adpulse/adsync/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// defaultPageSize is the page size requested on collection endpoints
	defaultPageSize = 100
)

// TokenSource supplies the stored long-lived system token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds Graph API client configuration
type Config struct {
	BaseURL        string
	Version        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	FallbackToken  string
}

// Client is the Graph API client
type Client struct {
	http   *http.Client
	cfg    Config
	tokens TokenSource
	logger ectologger.Logger
}

// NewClient creates a new Graph API client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = 30 * time.Second
	}

	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// SetTokenSource wires in the stored token provider. Set after construction
// because the provider refreshes through this client.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// resolveToken walks the credential chain: an explicit token in params wins,
// then the per-request session token, then the stored system token, then the
// static config token.
func (c *Client) resolveToken(ctx context.Context, params url.Values) (string, error) {
	if token := params.Get("access_token"); token != "" {
		return token, nil
	}
	if token := appcontext.GetSessionToken(ctx); token != "" {
		return token, nil
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("stored token unavailable, trying config token")
		}
	}
	if c.cfg.FallbackToken != "" {
		return c.cfg.FallbackToken, nil
	}
	return "", fmt.Errorf("no graph api access token available")
}

func (c *Client) buildURL(path string, params url.Values) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	path = strings.TrimPrefix(path, "/")
	u := fmt.Sprintf("%s/%s/%s", base, c.cfg.Version, path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// GetObject fetches a single object and decodes it into dest
func (c *Client) GetObject(ctx context.Context, path string, params url.Values, dest any) error {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.GetObject")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

// Post sends a form-encoded POST and decodes the response into dest when
// dest is non-nil
func (c *Client) Post(ctx context.Context, path string, params url.Values, form url.Values, dest any) error {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.Post")
	defer span.End()

	body, err := c.do(ctx, http.MethodPost, path, params, form)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}

// Put sends a form-encoded PUT and decodes the response into dest when
// dest is non-nil
func (c *Client) Put(ctx context.Context, path string, params url.Values, form url.Values, dest any) error {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.Put")
	defer span.End()

	body, err := c.do(ctx, http.MethodPut, path, params, form)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}

// Delete removes an object. The Graph API answers deletes with
// {"success":true}.
func (c *Client) Delete(ctx context.Context, path string, params url.Values) error {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.Delete")
	defer span.End()

	_, err := c.do(ctx, http.MethodDelete, path, params, nil)
	return err
}

// GetList walks a collection endpoint page by page, invoking fn for every
// element. Pagination follows the after cursor until the API stops returning
// one.
func (c *Client) GetList(ctx context.Context, path string, params url.Values, fn func(json.RawMessage) error) error {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.GetList")
	defer span.End()

	if params == nil {
		params = url.Values{}
	}
	if params.Get("limit") == "" {
		params.Set("limit", strconv.Itoa(defaultPageSize))
	}

	for {
		body, err := c.do(ctx, http.MethodGet, path, params, nil)
		if err != nil {
			return err
		}

		var pg page
		if err := json.Unmarshal(body, &pg); err != nil {
			return fmt.Errorf("failed to decode page: %w", err)
		}

		for _, raw := range pg.Data {
			if err := fn(raw); err != nil {
				return err
			}
		}

		after := pg.Paging.Cursors.After
		if after == "" || pg.Paging.Next == "" {
			return nil
		}
		params.Set("after", after)
	}
}

// do executes one request with the retry loop. Server errors, timeouts and
// throttles are retried with exponential backoff; other client errors are
// returned on the first attempt.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, form url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	token, err := c.resolveToken(ctx, params)
	if err != nil {
		return nil, err
	}
	params.Set("access_token", token)

	reqURL := c.buildURL(path, params)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.GraphRetriesTotal.Inc()
			delay := c.backoff(attempt)
			c.logger.WithContext(ctx).WithFields(map[string]any{
				"attempt": attempt,
				"delay":   delay.String(),
				"path":    path,
			}).Warn("retrying graph api request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, apiErr := c.doOnce(ctx, method, reqURL, form)
		if apiErr == nil {
			return body, nil
		}
		lastErr = apiErr

		if ae, ok := apiErr.(*APIError); ok && !retryable(ae.StatusCode) {
			return nil, apiErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, reqURL string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("Graph request failed: %s %s", method, req.URL.Path)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.GraphRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.GraphRequestDuration.WithLabelValues(method).Observe(duration.Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), MaxResponseSize)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	c.logger.WithContext(ctx).Debugf("Graph %s %s -> %d (%s)", method, req.URL.Path, resp.StatusCode, duration)
	return body, nil
}

func decodeAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &APIError{
			StatusCode: statusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	envelope.Error.StatusCode = statusCode
	return &envelope.Error
}

// backoff returns the delay before the given attempt: base doubled per
// attempt, capped at the configured maximum
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.RetryBaseDelay << (attempt - 1)
	if delay > c.cfg.RetryMaxDelay || delay <= 0 {
		return c.cfg.RetryMaxDelay
	}
	return delay
}

// ListAdAccounts fetches every ad account visible to the credential
func (c *Client) ListAdAccounts(ctx context.Context) ([]AccountData, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ListAdAccounts")
	defer span.End()

	params := url.Values{}
	params.Set("fields", "id,account_id,name,account_status,currency,timezone_name,amount_spent,balance,spend_cap,capabilities,business")

	var accounts []AccountData
	err := c.GetList(ctx, "me/adaccounts", params, func(raw json.RawMessage) error {
		var account AccountData
		if err := json.Unmarshal(raw, &account); err != nil {
			return err
		}
		accounts = append(accounts, account)
		return nil
	})
	return accounts, err
}

// ListCampaigns fetches every campaign under an account
func (c *Client) ListCampaigns(ctx context.Context, accountID string) ([]CampaignData, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ListCampaigns")
	defer span.End()

	params := url.Values{}
	params.Set("fields", "id,account_id,name,objective,status,configured_status,effective_status,daily_budget,lifetime_budget,budget_remaining,bid_strategy,start_time,stop_time,issues_info")

	var campaigns []CampaignData
	err := c.GetList(ctx, actPath(accountID)+"/campaigns", params, func(raw json.RawMessage) error {
		var campaign CampaignData
		if err := json.Unmarshal(raw, &campaign); err != nil {
			return err
		}
		campaigns = append(campaigns, campaign)
		return nil
	})
	return campaigns, err
}

// ListAdSets fetches every ad set under an account
func (c *Client) ListAdSets(ctx context.Context, accountID string) ([]AdSetData, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ListAdSets")
	defer span.End()

	params := url.Values{}
	params.Set("fields", "id,campaign_id,account_id,name,status,configured_status,effective_status,daily_budget,lifetime_budget,budget_remaining,optimization_goal,billing_event,targeting,start_time,end_time")

	var adsets []AdSetData
	err := c.GetList(ctx, actPath(accountID)+"/adsets", params, func(raw json.RawMessage) error {
		var adset AdSetData
		if err := json.Unmarshal(raw, &adset); err != nil {
			return err
		}
		adsets = append(adsets, adset)
		return nil
	})
	return adsets, err
}

// ListAds fetches every ad under an account
func (c *Client) ListAds(ctx context.Context, accountID string) ([]AdData, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ListAds")
	defer span.End()

	params := url.Values{}
	params.Set("fields", "id,adset_id,campaign_id,account_id,name,status,configured_status,effective_status,creative,preview_shareable_link")

	var ads []AdData
	err := c.GetList(ctx, actPath(accountID)+"/ads", params, func(raw json.RawMessage) error {
		var ad AdData
		if err := json.Unmarshal(raw, &ad); err != nil {
			return err
		}
		ads = append(ads, ad)
		return nil
	})
	return ads, err
}

// ListInsights fetches daily metric rows for an account at the given level
// (campaign, adset or ad) across the time range
func (c *Client) ListInsights(ctx context.Context, accountID, level string, tr TimeRange) ([]InsightData, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ListInsights")
	defer span.End()

	rangeJSON, err := json.Marshal(tr)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("level", level)
	params.Set("time_increment", "1")
	params.Set("time_range", string(rangeJSON))
	params.Set("fields", "account_id,campaign_id,campaign_name,adset_id,adset_name,ad_id,ad_name,spend,impressions,clicks,reach,frequency,ctr,cpc,cpm,cpp,actions,action_values,conversions,conversion_values,video_play_actions")

	var insights []InsightData
	err = c.GetList(ctx, actPath(accountID)+"/insights", params, func(raw json.RawMessage) error {
		var insight InsightData
		if err := json.Unmarshal(raw, &insight); err != nil {
			return err
		}
		insights = append(insights, insight)
		return nil
	})
	return insights, err
}

// ExchangeToken trades a short-lived token for a long-lived one
func (c *Client) ExchangeToken(ctx context.Context, appID, appSecret, shortLived string) (string, time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphClient.ExchangeToken")
	defer span.End()

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", shortLived)
	// The oauth endpoint authenticates via the exchange params themselves
	params.Set("access_token", shortLived)

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.GetObject(ctx, "oauth/access_token", params, &result); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(time.Duration(result.ExpiresIn) * time.Second).UTC()
	return result.AccessToken, expiresAt, nil
}

// actPath prefixes an account ID with act_ unless it already carries it
func actPath(accountID string) string {
	if strings.HasPrefix(accountID, "act_") {
		return accountID
	}
	return "act_" + accountID
}
