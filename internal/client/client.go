// Package client implements the ingestion operations against a deployed
// ingest service over HTTP. It satisfies the same contract as the local
// engine, so callers never know which side of the wire they run on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"monexa/internal/backend"
	"monexa/internal/core"
	"monexa/internal/ingest"
)

const defaultTimeout = 30 * time.Second

var _ backend.Ingestor = (*Client)(nil)

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the service at baseURL. A zero timeout falls
// back to a sane default; per-call contexts can always be tighter.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Preview uploads the file for a non-committing parse. Both response
// shapes of the service are accepted: the canonical headers/details form
// and the legacy flat "parsed" form, which is normalized before return.
func (c *Client) Preview(ctx context.Context, source string, file []byte, maxRows int) (*ingest.PreviewResult, error) {
	fields := map[string]string{"source": source}
	if maxRows > 0 {
		fields["rows"] = strconv.Itoa(maxRows)
	}
	body, err := c.postMultipart(ctx, "/preview_csv", fields, file)
	if err != nil {
		return nil, err
	}

	var envelope previewEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode preview response: %w", err)
	}
	return envelope.normalize(source), nil
}

// Dedupe sends preview headers for matching against the service's
// history. The response is aligned by position to the input.
func (c *Client) Dedupe(ctx context.Context, headers []core.TransactionHeader) ([]core.DedupeCandidate, error) {
	payload, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/dedupe_preview", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var candidates []core.DedupeCandidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, fmt.Errorf("decode dedupe response: %w", err)
	}
	if len(candidates) != len(headers) {
		return nil, fmt.Errorf("dedupe response has %d candidates for %d headers", len(candidates), len(headers))
	}
	return candidates, nil
}

// Commit uploads the file for durable import. A timeout here means the
// outcome is unknown: the batch may exist server-side, so the error is
// core.ErrTimeout and the caller must not blindly retry.
func (c *Client) Commit(ctx context.Context, source string, file []byte, strict bool) (core.ImportBatch, error) {
	fields := map[string]string{"source": source}
	if strict {
		fields["strict_details"] = "true"
	}
	body, err := c.postMultipart(ctx, "/upload_csv", fields, file)
	if err != nil {
		return core.ImportBatch{}, err
	}

	var resp struct {
		core.ImportBatch
		// Older deployments report a single count under "imported".
		LegacyImported *int `json:"imported"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.ImportBatch{}, fmt.Errorf("decode upload response: %w", err)
	}
	batch := resp.ImportBatch
	if batch.ImportedHeaderCount == 0 && resp.LegacyImported != nil {
		batch.ImportedHeaderCount = *resp.LegacyImported
		batch.ImportedDetailCount = 0
	}
	if batch.SourceID == "" {
		batch.SourceID = source
	}
	return batch, nil
}

// Cancel deletes the batch server-side. A 404 maps to core.ErrUnknownBatch
// so remote and local cancellation fail identically.
func (c *Client) Cancel(ctx context.Context, batchID string) (core.CancelResult, error) {
	body, err := c.do(ctx, http.MethodDelete, "/cancel_import/"+batchID, "", nil)
	if err != nil {
		var reqErr *core.RequestError
		if errors.As(err, &reqErr) && reqErr.NotFound() {
			return core.CancelResult{}, fmt.Errorf("cancel %q: %w", batchID, core.ErrUnknownBatch)
		}
		return core.CancelResult{}, err
	}

	var result core.CancelResult
	if err := json.Unmarshal(body, &result); err != nil {
		return core.CancelResult{}, fmt.Errorf("decode cancel response: %w", err)
	}
	return result, nil
}

func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, file []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("build form: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "upload.csv")
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := fw.Write(file); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s %s: %w", method, path, core.ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.RequestError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
		}
	}
	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorDetail pulls the "detail" field out of an error payload, falling
// back to the raw body so no server message is ever swallowed.
func errorDetail(data []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}
