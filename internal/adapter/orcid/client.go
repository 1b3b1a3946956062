// Package orcid is a client for the ORCID member API v3.0 (JSON).
package orcid

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
	"github.com/heartmarshall/orcid-sync/internal/telemetry"
)

const (
	contentType     = "application/vnd.orcid+json"
	maxErrorBody    = 64 << 10
	webhookScope    = "/webhook"
	defaultRetryCap = 10 * time.Second
)

var errRetryable = errors.New("registry asked to retry")

// Response is the registry's answer to a write. Non-2xx answers are
// responses too; only failures to obtain one are returned as errors.
type Response struct {
	Status int
	// PutCode is the identifier of the record after the call; empty after
	// a delete or a rejected create.
	PutCode string
	Message string
	// Digest is the blake2b-256 hex digest of the body that was sent.
	Digest string
}

// OK reports whether the registry accepted the call.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Person holds the fields of the person record that pull imports.
type Person struct {
	GivenNames string
	FamilyName string
	Biography  string
}

// Client calls the member API on behalf of profile owners.
type Client struct {
	baseURL    string
	base       http.RoundTripper
	timeout    time.Duration
	maxRetries uint
	userAgent  string
	newBackOff func() backoff.BackOff
	webhook    oauth2.TokenSource
	metrics    *telemetry.SyncMetrics
	log        *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the base HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithBackOff replaces the retry schedule for 429 and 503 answers.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// New creates a Client from the registry configuration.
func New(cfg config.RegistryConfig, metrics *telemetry.SyncMetrics, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		base:       http.DefaultTransport,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = defaultRetryCap
			return b
		},
		metrics: metrics,
		log:     log.With("component", "orcid_client"),
	}
	for _, o := range opts {
		o(c)
	}

	if cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{webhookScope},
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
			Transport: c.base,
			Timeout:   c.timeout,
		})
		c.webhook = cc.TokenSource(tokenCtx)
	}

	return c
}

// Create adds a record to section s of the given ORCID record.
func (c *Client) Create(ctx context.Context, token, orcid string, s Section, body any) (Response, error) {
	resp, err := c.send(ctx, http.MethodPost, c.bearer(token), c.url(orcid, string(s)), body)
	if err != nil {
		return Response{}, err
	}
	if resp.Status == http.StatusCreated {
		resp.PutCode = putCodeFromLocation(resp.location)
	}
	return resp.Response, nil
}

// Update replaces the record identified by putCode.
func (c *Client) Update(ctx context.Context, token, orcid string, s Section, putCode string, body any) (Response, error) {
	resp, err := c.send(ctx, http.MethodPut, c.bearer(token), c.url(orcid, string(s), putCode), body)
	if err != nil {
		return Response{}, err
	}
	if resp.OK() && resp.PutCode == "" {
		resp.PutCode = putCode
	}
	return resp.Response, nil
}

// Delete removes the record identified by putCode.
func (c *Client) Delete(ctx context.Context, token, orcid string, s Section, putCode string) (Response, error) {
	resp, err := c.send(ctx, http.MethodDelete, c.bearer(token), c.url(orcid, string(s), putCode), nil)
	if err != nil {
		return Response{}, err
	}
	resp.PutCode = ""
	return resp.Response, nil
}

// Person reads the person section of an ORCID record.
func (c *Client) Person(ctx context.Context, token, orcid string) (Person, error) {
	body, err := c.read(ctx, token, c.url(orcid, "person"))
	if err != nil {
		return Person{}, err
	}
	return Person{
		GivenNames: gjson.GetBytes(body, "name.given-names.value").String(),
		FamilyName: gjson.GetBytes(body, "name.family-name.value").String(),
		Biography:  gjson.GetBytes(body, "biography.content").String(),
	}, nil
}

// WorkPutCodes lists the put codes of every work summary on the record.
func (c *Client) WorkPutCodes(ctx context.Context, token, orcid string) ([]string, error) {
	body, err := c.read(ctx, token, c.url(orcid, "works"))
	if err != nil {
		return nil, err
	}

	var codes []string
	gjson.GetBytes(body, "group").ForEach(func(_, group gjson.Result) bool {
		group.Get("work-summary").ForEach(func(_, summary gjson.Result) bool {
			if pc := summary.Get("put-code"); pc.Exists() {
				codes = append(codes, pc.String())
			}
			return true
		})
		return true
	})
	return codes, nil
}

// RegisterWebhook asks the registry to notify callback when the record
// changes. It uses the application's client-credentials token.
func (c *Client) RegisterWebhook(ctx context.Context, orcid, callback string) error {
	if c.webhook == nil {
		return domain.NewValidationError("registry.client_id", "client credentials are required for webhooks")
	}

	u := c.url(orcid, "webhook", url.QueryEscape(callback))
	resp, err := c.send(ctx, http.MethodPut, c.authorized(c.webhook), u, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &domain.TransportError{
			Op:         "register webhook",
			URL:        u,
			StatusCode: resp.Status,
			Err:        errors.New(resp.Message),
		}
	}
	return nil
}

func (c *Client) read(ctx context.Context, token, u string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, c.bearer(token), u, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.TransportError{
			Op:         http.MethodGet,
			URL:        u,
			StatusCode: resp.Status,
			Err:        errors.New(resp.Message),
		}
	}
	return resp.body, nil
}

func (c *Client) url(orcid string, segments ...string) string {
	return c.baseURL + "/" + path.Join(append([]string{url.PathEscape(orcid)}, segments...)...)
}

func (c *Client) bearer(token string) *http.Client {
	return c.authorized(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

func (c *Client) authorized(src oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: src, Base: c.base},
	}
}

// rawResponse carries what the exported methods need beyond Response.
type rawResponse struct {
	Response
	location   string
	retryAfter string
	body       []byte
}

// send performs one logical call, retrying 429 and 503 answers with
// backoff. When retries run out the last answer is returned as is.
func (c *Client) send(ctx context.Context, method string, hc *http.Client, u string, body any) (rawResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return rawResponse{}, fmt.Errorf("orcid: encode %s payload: %w", method, err)
		}
	}

	var last *rawResponse
	op := func() (rawResponse, error) {
		resp, err := c.once(ctx, method, hc, u, payload)
		if err != nil {
			return rawResponse{}, backoff.Permanent(err)
		}
		if resp.Status == http.StatusTooManyRequests || resp.Status == http.StatusServiceUnavailable {
			last = &resp
			if secs, convErr := strconv.Atoi(resp.retryAfter); convErr == nil && secs > 0 {
				return resp, backoff.RetryAfter(secs)
			}
			return resp, errRetryable
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxRetries+1),
	)
	if err != nil {
		if last != nil && ctx.Err() == nil {
			return *last, nil
		}
		var te *domain.TransportError
		if errors.As(err, &te) {
			return rawResponse{}, te
		}
		return rawResponse{}, &domain.TransportError{Op: method, URL: u, Err: err}
	}

	if len(payload) > 0 {
		sum := blake2b.Sum256(payload)
		resp.Digest = hex.EncodeToString(sum[:])
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method string, hc *http.Client, u string, payload []byte) (rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return rawResponse{}, &domain.TransportError{Op: method, URL: u, Err: err}
	}
	req.Header.Set("Accept", contentType)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	res, err := hc.Do(req)
	if err != nil {
		c.metrics.RecordRequest(ctx, method, 0, time.Since(start))
		return rawResponse{}, &domain.TransportError{Op: method, URL: u, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	c.metrics.RecordRequest(ctx, method, res.StatusCode, time.Since(start))
	if err != nil {
		return rawResponse{}, &domain.TransportError{Op: method, URL: u, StatusCode: res.StatusCode, Err: err}
	}

	c.log.DebugContext(ctx, "registry call",
		slog.String("method", method),
		slog.String("url", u),
		slog.Int("status", res.StatusCode),
	)

	out := rawResponse{
		Response: Response{Status: res.StatusCode},
		body:     data,
	}
	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode == http.StatusServiceUnavailable:
		out.retryAfter = res.Header.Get("Retry-After")
		out.Message = errorMessage(data)
	case res.StatusCode >= 300:
		out.Message = errorMessage(data)
	default:
		out.location = res.Header.Get("Location")
		if pc := gjson.GetBytes(data, "put-code"); pc.Exists() {
			out.PutCode = pc.String()
		}
	}
	return out, nil
}

// errorMessage extracts the most useful text from an error body.
func errorMessage(body []byte) string {
	for _, key := range []string{"user-message", "developer-message", "error_description", "error"} {
		if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return strings.TrimSpace(string(body))
}

func putCodeFromLocation(loc string) string {
	if loc == "" {
		return ""
	}
	if u, err := url.Parse(loc); err == nil {
		loc = u.Path
	}
	return path.Base(strings.TrimRight(loc, "/"))
}
