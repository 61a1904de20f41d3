// Package backend is the REST client for the grading backend. It implements
// grading.Backend and maps transport and status failures onto the grading
// error taxonomy.
package backend

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/pkg/compress"
)

const (
	headerRequestID = "X-Request-ID"

	responseLimit = 32 << 20

	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

var _ grading.Backend = (*Client)(nil)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff    time.Duration
	HTTPClient *http.Client
}

// Client talks to a grading backend over HTTP.
type Client struct {
	baseURL     *url.URL
	token       string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      zerolog.Logger
}

// New creates a client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL must include scheme and host")
	}
	u.Path = strings.TrimRight(u.Path, "/")

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &Client{
		baseURL:     u,
		token:       opts.Token,
		httpClient:  hc,
		maxAttempts: attempts,
		backoff:     backoff,
		logger:      logging.Component("backend"),
	}, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.get(ctx, "/health", nil, &out)
}

// FirstSubmission implements grading.Backend.
func (c *Client) FirstSubmission(ctx context.Context, classroomID, assignmentID int64) (snapshot.SubmissionRef, error) {
	var resp SubmissionResponse
	p := assignmentPath(classroomID, assignmentID) + "/works/first"
	if err := c.get(ctx, p, nil, &resp); err != nil {
		return snapshot.SubmissionRef{}, err
	}
	return resp.Ref()
}

// Submission implements grading.Backend.
func (c *Client) Submission(ctx context.Context, key snapshot.Key) (snapshot.SubmissionRef, error) {
	var resp SubmissionResponse
	if err := c.get(ctx, workPath(key), nil, &resp); err != nil {
		return snapshot.SubmissionRef{}, err
	}
	return resp.Ref()
}

// Tree implements grading.Backend.
func (c *Client) Tree(ctx context.Context, key snapshot.Key) ([]snapshot.Entry, error) {
	var resp TreeResponse
	if err := c.get(ctx, workPath(key)+"/tree", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries()
}

// FileContent implements grading.Backend.
func (c *Client) FileContent(ctx context.Context, key snapshot.Key, path string) (snapshot.FileContent, error) {
	var resp FileResponse
	q := url.Values{"path": {path}}
	if err := c.get(ctx, workPath(key)+"/file", q, &resp); err != nil {
		return snapshot.FileContent{}, err
	}
	content, err := resp.Content()
	if err != nil {
		return snapshot.FileContent{}, err
	}
	if content.Path == "" {
		content.Path = path
	}
	return content, nil
}

// ListFeedback implements feedback.Store.
func (c *Client) ListFeedback(ctx context.Context, key snapshot.Key) ([]feedback.Record, error) {
	var resp FeedbackResponse
	if err := c.get(ctx, workPath(key)+"/feedback", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records()
}

// SaveFeedback implements feedback.Store.
func (c *Client) SaveFeedback(ctx context.Context, key snapshot.Key, action feedback.Action, s feedback.Snapshot) (feedback.Record, error) {
	var resp FeedbackComment
	if err := c.post(ctx, workPath(key)+"/feedback", NewFeedbackAction(action, s), &resp); err != nil {
		return feedback.Record{}, err
	}
	return resp.Record()
}

func assignmentPath(classroomID, assignmentID int64) string {
	return "/classrooms/" + strconv.FormatInt(classroomID, 10) +
		"/assignments/" + strconv.FormatInt(assignmentID, 10)
}

func workPath(key snapshot.Key) string {
	return assignmentPath(key.ClassroomID, key.AssignmentID) +
		"/works/" + strconv.FormatInt(key.SubmissionID, 10)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", EncodingZstd)
	if strings.TrimSpace(c.token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.retryDo(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", grading.ErrNetworkFailure, req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().Ctx(ctx).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", req.Header.Get(headerRequestID)).
		Msg("backend request")

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", grading.ErrNetworkFailure, err)
	}
	var decodeErr error
	if AcceptsZstd(resp.Header.Get("Content-Encoding")) {
		body, decodeErr = compress.Decode(body)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(body, resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", grading.ErrNotFound, msg)
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", grading.ErrNetworkFailure, req.Method, req.URL.Path, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decompress body: %w", grading.ErrMalformedResponse, decodeErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", grading.ErrMalformedResponse, req.URL.Path, err)
	}
	return nil
}

func errorMessage(body []byte, status int) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
