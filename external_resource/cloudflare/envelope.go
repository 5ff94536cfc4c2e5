package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/cloudflare/cloudflare-go"
)

// Error codes Cloudflare uses for an identifier that does not resolve
const (
	codeNoRoute          = 7000
	codeInvalidObjectID  = 7003
	codeInvalidZoneIDTag = 1001
)

// apiFailure is an envelope with success=false, whatever the HTTP status
type apiFailure struct {
	status   int
	codes    []int
	messages []string
}

func (f *apiFailure) Error() string {
	if len(f.messages) == 0 {
		return "provider reported success=false"
	}
	return strings.Join(f.messages, "; ")
}

type envelopeWatchKey struct{}

// envelopeWatch collects the first failed envelope seen by the requests of
// one SDK call. The SDK only raises errors for HTTP >= 400, so a
// success=false body on a 2xx would otherwise decode as an empty result.
type envelopeWatch struct {
	mu      sync.Mutex
	failure *apiFailure
}

func watchEnvelopes(ctx context.Context) (context.Context, *envelopeWatch) {
	w := &envelopeWatch{}
	return context.WithValue(ctx, envelopeWatchKey{}, w), w
}

func (w *envelopeWatch) record(f *apiFailure) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failure == nil {
		w.failure = f
	}
}

func (w *envelopeWatch) failed() (*apiFailure, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure, w.failure != nil
}

// envelopeTransport inspects response envelopes for requests carrying an
// envelopeWatch and hands the body on unchanged.
type envelopeTransport struct {
	next http.RoundTripper
}

func (t *envelopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	w, ok := req.Context().Value(envelopeWatchKey{}).(*envelopeWatch)
	if !ok {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if f, ok := parseFailure(resp.StatusCode, body); ok {
		w.record(f)
	}
	return resp, nil
}

// parseFailure reports a body whose success flag is present and false.
// Bodies that are not envelopes are left to the SDK.
func parseFailure(status int, body []byte) (*apiFailure, bool) {
	var env struct {
		Success *bool                     `json:"success"`
		Errors  []cloudflare.ResponseInfo `json:"errors"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Success == nil || *env.Success {
		return nil, false
	}

	f := &apiFailure{status: status}
	for _, e := range env.Errors {
		f.codes = append(f.codes, e.Code)
		f.messages = append(f.messages, e.Message)
	}
	return f, true
}

func failedFrom[T any](f *apiFailure) *Response[T] {
	resp := Failed[T](f.messages...)
	resp.StatusCode = f.status
	resp.Codes = f.codes
	return resp
}
