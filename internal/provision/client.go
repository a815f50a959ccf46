package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ==============================================
// ERROR TAXONOMY
// ==============================================

// ErrorKind is the closed set of provisioning failure classes surfaced to
// the orchestrator. The client never retries; callers map each kind to a
// stable user-facing error code.
type ErrorKind int

const (
	// KindUnavailable - transport failure, 5xx or 429 from the endpoint
	KindUnavailable ErrorKind = iota
	// KindNotFound - endpoint missing (404), a configuration error
	KindNotFound
	// KindInvalidResponse - 2xx but malformed payload (not an array, or empty)
	KindInvalidResponse
	// KindIncomplete - well-formed payload whose first element misses
	// username, password or expiresAt
	KindIncomplete
	// KindTimeout - deadline exceeded
	KindTimeout
)

// Error is a typed provisioning failure
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status when one was received, else 0
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("provisioning endpoint not found (status %d)", e.Status)
	case KindInvalidResponse:
		return fmt.Sprintf("provisioning response invalid: %s", e.Detail)
	case KindIncomplete:
		return "provisioning returned incomplete credentials"
	case KindTimeout:
		return "provisioning request timed out"
	default:
		if e.Status > 0 {
			return fmt.Sprintf("provisioning unavailable (status %d)", e.Status)
		}
		return fmt.Sprintf("provisioning unavailable: %s", e.Detail)
	}
}

// ==============================================
// REQUEST / RESPONSE CONTRACT
// ==============================================

// Request is the fully-populated provisioning payload. SessionID is the
// caller-supplied idempotency token; operators use it to identify a
// request when resubmitting manually.
type Request struct {
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	Device             string             `json:"device"`
	Fingerprint        string             `json:"fingerprint"`
	SessionID          string             `json:"sessionId"`
	Timestamp          string             `json:"timestamp"`
	IP                 string             `json:"ip,omitempty"`
	FingerprintDetails FingerprintDetails `json:"fingerprintDetails"`
}

type FingerprintDetails struct {
	Canvas    string   `json:"canvas"`
	UserAgent string   `json:"userAgent"`
	Timezone  string   `json:"timezone"`
	Platform  string   `json:"platform"`
	Language  string   `json:"language"`
	Hardware  Hardware `json:"hardware"`
}

type Hardware struct {
	Screen      Screen `json:"screen"`
	Cores       int    `json:"cores"`
	TouchPoints int    `json:"touchPoints"`
}

type Screen struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Credentials is the usable result of a successful provisioning call
type Credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ExpiresAt string `json:"expiresAt"` // ISO-8601
}

// The endpoint responds with an array; only the first element matters.
type responseItem struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ExpiresAt string `json:"expiresAt"`
}

// ==============================================
// CLIENT
// ==============================================

const requestTimeout = 30 * time.Second

// Client calls the external credential-issuing endpoint. One HTTP call
// per Provision, bounded by a hard timeout, no retries and no fallback
// credentials.
type Client struct {
	EndpointURL string
	HTTPClient  *http.Client
}

func NewClient(endpointURL string) *Client {
	return &Client{
		EndpointURL: endpointURL,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Provision requests trial credentials from the external service
func (c *Client) Provision(ctx context.Context, req Request) (*Credentials, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provisioning request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.EndpointURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create provisioning request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			log.Printf("[PROVISION] Timeout - SessionID: %s", req.SessionID)
			return nil, &Error{Kind: KindTimeout, Detail: err.Error()}
		}
		log.Printf("[PROVISION] Transport error - SessionID: %s, Err: %v", req.SessionID, err)
		return nil, &Error{Kind: KindUnavailable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Detail: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[PROVISION] Non-2xx - SessionID: %s, Status: %d", req.SessionID, resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return nil, &Error{Kind: KindNotFound, Status: resp.StatusCode}
		}
		return nil, &Error{Kind: KindUnavailable, Status: resp.StatusCode, Detail: truncate(string(respBody), 100)}
	}

	var items []responseItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Status: resp.StatusCode, Detail: "payload is not an array"}
	}

	if len(items) == 0 {
		return nil, &Error{Kind: KindInvalidResponse, Status: resp.StatusCode, Detail: "empty credential array"}
	}

	first := items[0]
	if first.Username == "" || first.Password == "" || first.ExpiresAt == "" {
		return nil, &Error{Kind: KindIncomplete, Status: resp.StatusCode}
	}

	return &Credentials{
		Username:  first.Username,
		Password:  first.Password,
		ExpiresAt: first.ExpiresAt,
	}, nil
}

// ==============================================
// HELPERS
// ==============================================

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
