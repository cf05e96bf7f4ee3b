package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"
)

// Outcome classification for upstream failures. The gateway never returns a
// raw transport error: callers see one of these, or an *UpstreamError.
var (
	// ErrUnavailable covers connection-level failures (refused, DNS, reset)
	// and exceeded deadlines. Safe for the caller to retry later.
	ErrUnavailable = errors.New("extraction service unavailable")

	// ErrNoData means the upstream call succeeded but carried no payload for
	// the requested class. Indicates unreadable input, not a system fault.
	ErrNoData = errors.New("extraction returned no data for the requested document class")
)

// UpstreamError means the upstream was reached but reported a processing
// failure. Not retried automatically; the detail stays opaque to callers.
type UpstreamError struct {
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("extraction service reported failure: %s", e.Detail)
}

// Timeouts are hard upper bounds per call kind. Exceeding one yields
// ErrUnavailable, never an indefinite hang.
type Timeouts struct {
	Health  time.Duration
	Extract time.Duration
	Batch   time.Duration
}

// DefaultTimeouts match the upstream's observed latency envelope: single
// extractions can take two minutes, multi-document work experience batches
// three.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Health:  5 * time.Second,
		Extract: 120 * time.Second,
		Batch:   180 * time.Second,
	}
}

// Client talks to the external extraction service. It performs no retries:
// upstream latency runs to minutes, so automatic retries would multiply tail
// latency unpredictably. Human resubmission is the retry mechanism.
type Client struct {
	baseURL  string
	http     *http.Client
	timeouts Timeouts
	logger   *zap.Logger
}

// NewClient builds a gateway client. The http.Client carries no global
// timeout; every call derives a per-kind deadline from its context.
func NewClient(baseURL string, timeouts Timeouts, logger *zap.Logger) *Client {
	if timeouts.Extract == 0 {
		timeouts = DefaultTimeouts()
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{},
		timeouts: timeouts,
		logger:   logger,
	}
}

// Health probes the upstream availability endpoint. Failures never block a
// submission; the result only informs the caller proactively.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Health)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ErrUnavailable
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Detail: fmt.Sprintf("health returned %d", resp.StatusCode)}
	}
	return nil
}

// ProcessKYC submits named identity document slots to the synchronous KYC
// endpoint and returns the upstream's verdict.
func (c *Client) ProcessKYC(ctx context.Context, documents map[string]File) (*KYCResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Extract)
	defer cancel()

	body, contentType, err := encodeMultipart(nil, documents)
	if err != nil {
		return nil, err
	}
	var result KYCResult
	if err := c.post(ctx, "/api/kyc/process", contentType, body, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, &UpstreamError{Detail: result.Error}
	}
	if result.Status == "" {
		return nil, ErrNoData
	}
	return &result, nil
}

// ExtractMarksheets uploads school marksheets for the given class and runs a
// synchronous extraction over the uploaded paths.
func (c *Client) ExtractMarksheets(ctx context.Context, class string, files []File) (*MarksheetPayload, error) {
	raw, err := c.uploadAndExtract(ctx, class, files)
	if err != nil {
		return nil, err
	}
	var payload MarksheetPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Detail: "malformed marksheet payload"}
	}
	if len(payload.Marksheets) == 0 {
		return nil, ErrNoData
	}
	return &payload, nil
}

// ExtractHigherEducation uploads graduation documents and extracts detected
// degree entries.
func (c *Client) ExtractHigherEducation(ctx context.Context, files []File) (*HigherEducationPayload, error) {
	raw, err := c.uploadAndExtract(ctx, "higher_education", files)
	if err != nil {
		return nil, err
	}
	var payload HigherEducationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Detail: "malformed higher education payload"}
	}
	if len(payload.Degrees) == 0 {
		return nil, ErrNoData
	}
	return &payload, nil
}

// ExtractWorkExperiences posts a multi-document batch straight to the
// synchronous extraction endpoint under the extended batch deadline.
func (c *Client) ExtractWorkExperiences(ctx context.Context, files []File) (*WorkExperiencePayload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Batch)
	defer cancel()

	body, contentType, err := encodeMultipart(files, nil)
	if err != nil {
		return nil, err
	}
	var resp extractResponse
	if err := c.post(ctx, "/api/extract/sync", contentType, body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, &UpstreamError{Detail: upstreamDetail(resp.Error, resp.Status)}
	}
	raw, ok := resp.Data.Payload["work_experience"]
	if !ok {
		return nil, ErrNoData
	}
	var payload WorkExperiencePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Detail: "malformed work experience payload"}
	}
	// An empty work_experiences array is still a payload; the transformer
	// decides whether anything usable survives.
	return &payload, nil
}

// uploadAndExtract issues the two sequential calls for binary-bearing
// classes: multipart upload, then a synchronous extraction referencing the
// server-side paths. Both run under one extraction deadline.
func (c *Client) uploadAndExtract(ctx context.Context, class string, files []File) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Extract)
	defer cancel()

	body, contentType, err := encodeMultipart(files, nil)
	if err != nil {
		return nil, err
	}
	var uploaded uploadResponse
	if err := c.post(ctx, "/api/upload", contentType, body, &uploaded); err != nil {
		return nil, err
	}
	if uploaded.Status != "success" {
		return nil, &UpstreamError{Detail: upstreamDetail(uploaded.Error, uploaded.Status)}
	}
	path, ok := uploaded.UploadedFiles[class]
	if !ok {
		return nil, ErrNoData
	}

	reqBody, err := json.Marshal(map[string]any{
		"documents": map[string]string{class: path},
	})
	if err != nil {
		return nil, err
	}
	var resp extractResponse
	if err := c.post(ctx, "/api/extract/sync", "application/json", bytes.NewReader(reqBody), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, &UpstreamError{Detail: upstreamDetail(resp.Error, resp.Status)}
	}
	raw, ok := resp.Data.Payload[class]
	if !ok || len(raw) == 0 {
		return nil, ErrNoData
	}
	return raw, nil
}

// post issues one call and classifies the outcome. Transport-level failures
// and deadline hits collapse to ErrUnavailable; non-2xx responses become
// UpstreamError with the body kept out of the caller-facing message.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("extraction call failed at transport level",
			zap.String("path", path), zap.Error(err))
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("extraction call rejected upstream",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &UpstreamError{Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, string(detail))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Detail: "undecodable response body"}
	}
	return nil
}

func upstreamDetail(errMsg, status string) string {
	if errMsg != "" {
		return errMsg
	}
	return "upstream status " + status
}

// encodeMultipart writes files (field name "files") and named slots (field
// name = slot) into one multipart body.
func encodeMultipart(files []File, slots map[string]File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	writeFile := func(field string, f File) error {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		_, err = part.Write(f.Data)
		return err
	}

	for _, f := range files {
		if err := writeFile("files", f); err != nil {
			return nil, "", err
		}
	}
	for slot, f := range slots {
		if err := writeFile(slot, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
