package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// httpDialect is the shared plumbing for the two REST-based controller
// dialects: a single http.Client, base URL and basic-auth credentials, with
// a doJSON helper that mirrors the dial-check/timeout/error-classification
// shape of the router REST adapter this package is grounded on.
type httpDialect struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func newHTTPDialect(baseURL, username, password string) httpDialect {
	return httpDialect{
		baseURL:  baseURL,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// doJSON issues method against baseURL+path, marshalling body (if non-nil)
// as the request payload and unmarshalling the response into out (if
// non-nil). A non-2xx response is classified as an *apperrors-less wire
// error so the caller decides the domain error kind. Transport-level
// failures (the request never got a response) are retried with a bounded
// exponential backoff; a non-2xx response is not retried since it is
// already a definitive answer from the controller.
func (d httpDialect) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.username != "" {
		req.SetBasicAuth(d.username, d.password)
	}

	resp, err := d.doWithRetry(req)
	if err != nil {
		return &WireError{Op: method + " " + path, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &WireError{Op: method + " " + path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if resp.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// doWithRetry retries req on transport-level failure (connection refused,
// timeout, DNS) up to two times (three attempts in all) with exponential
// backoff, mirroring the
// restart-backoff shape used elsewhere in this stack for transient faults.
func (d httpDialect) doWithRetry(req *http.Request) (*http.Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 1 * time.Second
	bounded := backoff.WithMaxRetries(b, 2)

	var resp *http.Response
	operation := func() error {
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			req.Body = body
		}
		r, err := d.client.Do(req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(bounded, req.Context())); err != nil {
		return nil, err
	}
	return resp, nil
}

// WireError is a non-2xx or transport-level failure from a controller
// dialect's REST call. The Realiser maps it to apperrors.ControllerError;
// a 404 on a delete is treated as idempotent success by the caller.
type WireError struct {
	Op         string
	StatusCode int
	Body       string
	Cause      error
}

func (e *WireError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("controller request %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("controller request %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *WireError) Unwrap() error { return e.Cause }

// IsNotFound reports whether the wire error represents an HTTP 404.
func (e *WireError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }
