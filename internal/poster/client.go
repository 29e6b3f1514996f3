package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	pathHealth       = "/health"
	pathUploadCSV    = "/upload-csv"
	pathRunNow       = "/run-now"
	pathScheduleOnce = "/schedule-once"

	uploadField   = "file"
	maxErrorBody  = 2048
	defaultUA     = "crazypanel/0.1.0"
	jsonMediaType = "application/json"
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the Crazy Poster backend.
type Client struct {
	baseURL   string
	userAgent string
	client    HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The default has no timeout.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// New constructs a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userAgent: defaultUA,
		client:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathHealth, nil, "")
	if err != nil {
		return HealthStatus{}, failed(OpHealth, 0, err)
	}
	var body any
	if err := c.do(req, OpHealth, &body); err != nil {
		return HealthStatus{}, err
	}
	return HealthStatus{Online: true, Raw: body}, nil
}

// UploadArtifact sends content as the multipart "file" field of
// POST /upload-csv and returns the backend-assigned reference.
func (c *Client) UploadArtifact(ctx context.Context, content []byte, fileName string) (Upload, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadField, normalizeFileName(fileName))
	if err != nil {
		return Upload{}, failed(OpUpload, 0, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(content); err != nil {
		return Upload{}, failed(OpUpload, 0, fmt.Errorf("write form file: %w", err))
	}
	if err := writer.Close(); err != nil {
		return Upload{}, failed(OpUpload, 0, fmt.Errorf("close multipart writer: %w", err))
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathUploadCSV, &buf, writer.FormDataContentType())
	if err != nil {
		return Upload{}, failed(OpUpload, 0, err)
	}
	var out Upload
	if err := c.do(req, OpUpload, &out); err != nil {
		return Upload{}, err
	}
	if strings.TrimSpace(out.Reference) == "" {
		return Upload{}, failed(OpUpload, 0, ErrMissingReference)
	}
	return out, nil
}

// RunNow asks the backend to execute the referenced artifact immediately.
func (c *Client) RunNow(ctx context.Context, account, reference string) (RunReceipt, error) {
	var out RunReceipt
	payload := runRequest{Account: account, CSVPath: reference}
	if err := c.postJSON(ctx, OpRunNow, pathRunNow, payload, &out); err != nil {
		return RunReceipt{}, err
	}
	return out, nil
}

// ScheduleOnce asks the backend to execute the referenced artifact once at
// when. The timestamp is forwarded as given.
func (c *Client) ScheduleOnce(ctx context.Context, account, reference, when string) (ScheduleReceipt, error) {
	var out ScheduleReceipt
	payload := scheduleRequest{Account: account, CSVPath: reference, When: when}
	if err := c.postJSON(ctx, OpSchedule, pathScheduleOnce, payload, &out); err != nil {
		return ScheduleReceipt{}, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, op Operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(op, 0, fmt.Errorf("encode request: %w", err))
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), jsonMediaType)
	if err != nil {
		return failed(op, 0, err)
	}
	return c.do(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", jsonMediaType)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op Operation, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return failed(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(snippet))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return failed(op, resp.StatusCode, errors.New(text))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failed(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// normalizeFileName keeps only the base name and converts it to NFC so the
// backend sees the same bytes regardless of the host filesystem's form.
func normalizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload.csv"
	}
	return norm.NFC.String(filepath.Base(name))
}
