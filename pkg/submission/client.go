package submission

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
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// DefaultRoute is the backend route receiving submissions.
const DefaultRoute = "savePcrnowInfo"

// ErrNoSubmissionID is returned when the backend accepts a request without assigning an id.
var ErrNoSubmissionID = errors.New("response carries no submissionId")

// Client posts payloads to the study backend as multipart/form-data.
// It implements ports.Submitter.
type Client struct {
	endpoint string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// NewClient creates a client posting to baseURL/route. An empty route uses DefaultRoute.
func NewClient(baseURL, route string, timeout time.Duration, opts ...ClientOption) *Client {
	if route == "" {
		route = DefaultRoute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(route, "/"),
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends the payload once. It never retries.
func (c *Client) Submit(ctx context.Context, payload *domain.Payload) (domain.Receipt, error) {
	body, contentType, err := encode(payload)
	if err != nil {
		return domain.Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("submission request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Receipt{}, fmt.Errorf("submission rejected: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var receipt domain.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return domain.Receipt{}, fmt.Errorf("failed to decode submission response: %w", err)
	}
	if receipt.SubmissionID == "" {
		return domain.Receipt{}, ErrNoSubmissionID
	}
	return receipt, nil
}

func encode(payload *domain.Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, part := range payload.Parts {
		if err := w.WriteField(part.Name, part.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", part.Name, err)
		}
	}
	for _, file := range payload.Files {
		contentType := file.ContentType
		if contentType == "" {
			contentType = "audio/wav"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		h.Set("Content-Type", contentType)
		fw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part %s: %w", file.Field, err)
		}
		if _, err := fw.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write file part %s: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
