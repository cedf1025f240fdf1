package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Paths lists the remote endpoints relative to the base URL.
type Paths struct {
	Login          string
	RequestOTP     string
	VerifyOTP      string
	ChangePassword string
}

// DefaultPaths returns the identity provider's standard endpoints.
func DefaultPaths() Paths {
	return Paths{
		Login:          "/auth/login",
		RequestOTP:     "/auth/otp/request",
		VerifyOTP:      "/auth/otp/verify",
		ChangePassword: "/auth/password/change",
	}
}

// ObserveFunc receives the outcome and latency of every call.
type ObserveFunc func(op Operation, kind Kind, elapsed time.Duration)

// Options configures a [Client].
type Options struct {
	BaseURL string
	Paths   Paths
	// Timeout bounds each call when HTTPClient is nil.
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
	Observe    ObserveFunc
}

// Client talks to the identity provider over HTTP. It holds no session state
// and is safe for concurrent use.
type Client struct {
	base      *url.URL
	paths     Paths
	http      *http.Client
	userAgent string
	observe   ObserveFunc
}

// New validates opts and returns a client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("gateway: base url must be http or https")
	}
	if base.Host == "" {
		return nil, errors.New("gateway: base url has no host")
	}

	paths := opts.Paths
	defaults := DefaultPaths()
	if paths.Login == "" {
		paths.Login = defaults.Login
	}
	if paths.RequestOTP == "" {
		paths.RequestOTP = defaults.RequestOTP
	}
	if paths.VerifyOTP == "" {
		paths.VerifyOTP = defaults.VerifyOTP
	}
	if paths.ChangePassword == "" {
		paths.ChangePassword = defaults.ChangePassword
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "portalAuth"
	}

	return &Client{base: base, paths: paths, http: hc, userAgent: ua, observe: opts.Observe}, nil
}

// BaseURL returns the provider base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Login authenticates identifier/secret.
func (c *Client) Login(ctx context.Context, identifier, secret string) LoginResult {
	env, res := c.call(ctx, OpLogin, c.paths.Login, map[string]string{
		"identifier": identifier,
		"secret":     secret,
	})
	out := LoginResult{Result: res}
	if !res.OK {
		return out
	}
	out.User, out.Token = normalizeLogin(env)
	return out
}

// RequestOTP asks the provider to send a one-time passcode to email.
func (c *Client) RequestOTP(ctx context.Context, email string) Result {
	_, res := c.call(ctx, OpRequestOTP, c.paths.RequestOTP, map[string]string{"email": email})
	return res
}

// VerifyOTP checks otp for email.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) Result {
	_, res := c.call(ctx, OpVerifyOTP, c.paths.VerifyOTP, map[string]string{
		"email": email,
		"otp":   otp,
	})
	return res
}

// ChangePassword sets newSecret, re-validating otp server-side.
func (c *Client) ChangePassword(ctx context.Context, email, otp, newSecret string) Result {
	_, res := c.call(ctx, OpChangePassword, c.paths.ChangePassword, map[string]string{
		"email":     email,
		"otp":       otp,
		"newSecret": newSecret,
	})
	return res
}

func (c *Client) call(ctx context.Context, op Operation, path string, body any) (envelope, Result) {
	start := time.Now()
	env, res := c.do(ctx, path, body)
	if c.observe != nil {
		c.observe(op, res.Kind, time.Since(start))
	}
	return env, res
}

func (c *Client) do(ctx context.Context, path string, body any) (envelope, Result) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, Result{Kind: KindMalformed, Message: err.Error()}
	}

	endpoint := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return envelope{}, Result{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, Result{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, Result{Kind: KindNetwork, Status: resp.StatusCode, Message: err.Error()}
	}

	env, decodeErr := decodeEnvelope(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env, Result{Kind: KindRejected, Status: resp.StatusCode, Message: env.message()}
	}
	if decodeErr != nil {
		return env, Result{Kind: KindMalformed, Status: resp.StatusCode, Message: decodeErr.Error()}
	}
	if env.Success == nil {
		return env, Result{Kind: KindMalformed, Status: resp.StatusCode, Message: "success flag missing"}
	}
	if !*env.Success {
		return env, Result{Kind: KindRejected, Status: resp.StatusCode, Message: env.message()}
	}
	return env, Result{OK: true, Kind: KindNone, Status: resp.StatusCode, Message: env.message()}
}
