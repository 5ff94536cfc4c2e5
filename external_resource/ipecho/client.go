package ipecho

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Cloudflare trace endpoints. The IP literal in the URL pins the address
// family the request travels over, and therefore the address echoed back.
const (
	IPv4TraceURL = "https://1.1.1.1/cdn-cgi/trace"
	IPv6TraceURL = "https://[2606:4700:4700::1111]/cdn-cgi/trace"
)

const (
	ipPrefix       = "ip="
	defaultTimeout = 10 * time.Second
	maxBodySize    = 64 << 10
)

// ErrNoIP means the body had no ip= line
var ErrNoIP = errors.New("no ip= line in response")

// ConnectError is a dial-level failure, typically a host without a route
// for that address family.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer from the echo endpoint
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP status code %d", e.URL, e.StatusCode)
}

// Client fetches the caller's address as seen by an echo endpoint
type Client interface {
	Lookup(ctx context.Context, url string) (string, error)
}

type httpClient struct {
	http *http.Client
}

// NewClient returns a Client with the given per-request timeout (0 = 10s)
func NewClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := cleanhttp.DefaultClient()
	c.Timeout = timeout
	return &httpClient{http: c}
}

// Lookup GETs url and returns the value of the first ip= line
func (c *httpClient) Lookup(ctx context.Context, url string) (string, error) {
	ctx, span := otel.Tracer("cf-ddns").Start(ctx, "ipecho.Lookup")
	defer span.End()

	span.SetAttributes(attribute.String("url", url))

	ip, err := c.lookup(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("ip", ip))
	return ip, nil
}

func (c *httpClient) lookup(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectError(err) {
			return "", &ConnectError{URL: url, Err: err}
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", url, err)
	}

	ip, ok := ParseIP(string(body))
	if !ok {
		return "", fmt.Errorf("%w from %s, full response: %q", ErrNoIP, url, body)
	}
	return ip, nil
}

// ParseIP returns the value of the first line starting with "ip="
func ParseIP(body string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if v, ok := strings.CutPrefix(line, ipPrefix); ok {
			return v, true
		}
	}
	return "", false
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
