// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rollcall/internal/metrics"
)

// Gateway request headers.
const (
	HeaderPayer     = "X-Ledger-Payer"
	HeaderSignature = "X-Ledger-Signature"
	HeaderTimestamp = "X-Ledger-Timestamp"
)

const maxErrorBodySize = 64 * 1024

// HTTPConfig configures the gateway client.
type HTTPConfig struct {
	// BaseURL is the gateway root, e.g. https://ledger.internal:8443.
	BaseURL string

	// Keys signs requests and derives attendance accounts.
	Keys *KeyDeriver

	// RequestsPerSecond paces fee-bearing calls (submit, finalize).
	// Zero disables pacing.
	RequestsPerSecond float64

	// HTTPClient defaults to a client with a 30s overall timeout.
	HTTPClient *http.Client
}

// HTTPClient talks to the ledger gateway's JSON API. Each request body is
// signed by the fee payer; submit bodies additionally carry the record
// account's signature over the attestation.
type HTTPClient struct {
	base    *url.URL
	keys    *KeyDeriver
	payer   ed25519.PrivateKey
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewHTTPClient validates the configuration.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.Keys == nil {
		return nil, errors.New("ledger key deriver is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ledger URL %q", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HTTPClient{
		base:    base,
		keys:    cfg.Keys,
		payer:   cfg.Keys.Payer(),
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}, nil
}

type submitRequest struct {
	Submission
	Account          string `json:"account"`
	AccountSignature string `json:"account_signature"`
}

type submitResponse struct {
	Handle string `json:"handle"`
}

// errorResponse is the gateway's error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit writes the attestation and returns the ledger handle.
func (c *HTTPClient) Submit(ctx context.Context, sub Submission) (string, error) {
	account := c.keys.Account(sub.SessionID, sub.StudentID)
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	req := submitRequest{
		Submission:       sub,
		Account:          PublicHex(account),
		AccountSignature: base64.StdEncoding.EncodeToString(ed25519.Sign(account, payload)),
	}

	var resp submitResponse
	if err := c.do(ctx, "submit", http.MethodPost, "/v1/records", req, &resp, true); err != nil {
		return "", err
	}
	if resp.Handle == "" {
		return "", errors.New("ledger submit: gateway returned empty handle")
	}
	return resp.Handle, nil
}

// Finalize seals a previously submitted record.
func (c *HTTPClient) Finalize(ctx context.Context, handle string) (*Confirmation, error) {
	var conf Confirmation
	if err := c.do(ctx, "finalize", http.MethodPost, "/v1/records/"+url.PathEscape(handle)+"/finalize", struct{}{}, &conf, true); err != nil {
		return nil, err
	}
	if conf.Handle == "" {
		conf.Handle = handle
	}
	return &conf, nil
}

// Fetch reads a record back from the ledger.
func (c *HTTPClient) Fetch(ctx context.Context, handle string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, "fetch", http.MethodGet, "/v1/records/"+url.PathEscape(handle), nil, &rec, false); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FetchByAccount reads the record held by the derived attendance account.
func (c *HTTPClient) FetchByAccount(ctx context.Context, sessionID, studentID string) (*Record, error) {
	var rec Record
	path := "/v1/accounts/" + PublicHex(c.keys.Account(sessionID, studentID)) + "/record"
	if err := c.do(ctx, "fetch_account", http.MethodGet, path, nil, &rec, false); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Balance returns the fee payer's balance.
func (c *HTTPClient) Balance(ctx context.Context) (*Balance, error) {
	var bal Balance
	path := "/v1/accounts/" + PublicHex(c.payer) + "/balance"
	if err := c.do(ctx, "balance", http.MethodGet, path, nil, &bal, false); err != nil {
		return nil, err
	}
	return &bal, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out interface{}, paced bool) (err error) {
	start := time.Now()
	defer func() {
		result := "success"
		switch {
		case errors.Is(err, ErrNotFound):
			result = "not_found"
		case errors.Is(err, ErrDuplicate), errors.Is(err, ErrAlreadyFinalized):
			result = "conflict"
		case err != nil:
			result = "error"
		}
		metrics.RecordLedgerCall(op, result, time.Since(start))
	}()

	if paced && c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ledger %s: rate limiter: %w", op, err)
		}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger %s: encode request: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, bodyReader(payload))
	if err != nil {
		return fmt.Errorf("ledger %s: create request: %w", op, err)
	}
	c.sign(req, method, path, payload)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("ledger %s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return conflictError(op, resp.Body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("ledger %s: gateway returned status %d: %s", op, resp.StatusCode, describeError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger %s: decode response: %w", op, err)
	}
	return nil
}

// conflictError maps a 409 by operation. Only finalize and submit have a
// defined conflict; elsewhere it is an unexpected gateway answer.
func conflictError(op string, body io.Reader) error {
	detail := describeError(body)
	switch op {
	case "finalize":
		return fmt.Errorf("ledger %s: %w", op, ErrAlreadyFinalized)
	case "submit":
		if detail == "" {
			return fmt.Errorf("ledger %s: %w", op, ErrDuplicate)
		}
		return fmt.Errorf("ledger %s: %w (%s)", op, ErrDuplicate, detail)
	default:
		return fmt.Errorf("ledger %s: gateway returned status %d: %s", op, http.StatusConflict, detail)
	}
}

// sign attaches the payer signature over SigningMessage.
func (c *HTTPClient) sign(req *http.Request, method, path string, payload []byte) {
	ts := c.now().UTC().Format(time.RFC3339)
	req.Header.Set(HeaderPayer, PublicHex(c.payer))
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(ed25519.Sign(c.payer, SigningMessage(method, path, ts, payload))))
}

// SigningMessage is "METHOD\nPATH\nTIMESTAMP\nBODY", the byte string the
// payer signs and the gateway verifies.
func SigningMessage(method, path, timestamp string, payload []byte) []byte {
	msg := make([]byte, 0, len(method)+len(path)+len(timestamp)+len(payload)+3)
	msg = append(msg, method...)
	msg = append(msg, '\n')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = append(msg, timestamp...)
	msg = append(msg, '\n')
	return append(msg, payload...)
}

func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return http.NoBody
	}
	return bytes.NewReader(payload)
}

func describeError(r io.Reader) string {
	body := readBodyForError(r)
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		if e.Code != "" {
			return e.Code + ": " + e.Message
		}
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
