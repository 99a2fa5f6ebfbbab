package website

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultTimeout bounds a single website fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the crawler to site operators.
	DefaultUserAgent = "PhotobookClaimVerifier/1.0 (+https://photobook.example/about/verification)"

	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	maxBodyBytes = 2 << 20
)

// Failure classifies why a website could not prove ownership.
type Failure string

const (
	FailureNone         Failure = ""
	FailureHTTPStatus   Failure = "http_status"
	FailureTimeout      Failure = "timeout"
	FailureUnreachable  Failure = "unreachable"
	FailureCodeNotFound Failure = "code_not_found"
	FailureOther        Failure = "other"
)

const (
	MsgCodeNotFound = "Verification code not found on website"
	MsgTimeout      = "Request timed out while fetching website"
	MsgUnreachable  = "Could not connect to website. Please check that it is publicly accessible"
)

// Result is the outcome of a single website check. Failures are values; the
// caller decides whether to let the claimant retry.
type Result struct {
	Verified bool
	Failure  Failure
	Message  string
}

// FetchObserver receives fetch timings, keyed by result label.
type FetchObserver interface {
	ObserveWebsiteFetch(result string, d time.Duration)
}

// Verifier fetches a claimant's website and looks for the verification code.
type Verifier struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	observer  FetchObserver
}

type Option func(*Verifier)

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		if c != nil {
			v.client = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(v *Verifier) {
		if ua != "" {
			v.userAgent = ua
		}
	}
}

// WithPrivateNetworks lets the verifier fetch loopback and private addresses.
// Local development and tests only.
func WithPrivateNetworks() Option {
	return func(v *Verifier) {
		v.client = &http.Client{}
	}
}

func WithObserver(o FetchObserver) Option {
	return func(v *Verifier) {
		v.observer = o
	}
}

// NewVerifier constructs a Verifier with a 10 second timeout that only fetches
// public addresses.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		client:    newPublicClient(),
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify fetches rawURL and checks that code is published on the page.
// rawURL must be non-empty; it is normalized before fetching.
func (v *Verifier) Verify(ctx context.Context, rawURL, code string) Result {
	target := NormalizeURL(rawURL)
	ctx, span := otel.Tracer("photobook/claim/website").Start(ctx, "website.Verify")
	span.SetAttributes(attribute.String("website.host", Hostname(target)))
	defer span.End()

	start := time.Now()
	res := v.verify(ctx, target, code)
	if v.observer != nil {
		label := string(res.Failure)
		if res.Verified {
			label = "verified"
		}
		v.observer.ObserveWebsiteFetch(label, time.Since(start))
	}
	if !res.Verified {
		span.SetStatus(codes.Error, res.Message)
	}
	span.SetAttributes(attribute.Bool("website.verified", res.Verified))
	return res
}

func (v *Verifier) verify(ctx context.Context, target, code string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failed(FailureOther, fmt.Sprintf("Verification failed: %v", err))
	}
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := v.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(FailureHTTPStatus, fmt.Sprintf("Website returned HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classify(err)
	}
	if !ContainsCode(body, code) {
		return failed(FailureCodeNotFound, MsgCodeNotFound)
	}
	return Result{Verified: true}
}

// classify maps transport errors onto the failure taxonomy.
func classify(err error) Result {
	if errors.Is(err, errNonPublicAddress) {
		return failed(FailureUnreachable, MsgUnreachable)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failed(FailureTimeout, MsgTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failed(FailureTimeout, MsgTimeout)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return failed(FailureUnreachable, MsgUnreachable)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return failed(FailureUnreachable, MsgUnreachable)
	}
	return failed(FailureOther, fmt.Sprintf("Verification failed: %v", err))
}

func failed(f Failure, msg string) Result {
	return Result{Failure: f, Message: msg}
}
