package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 10.0
	DefaultRateBurst = 5
	defaultUserAgent = "systables/1.0"
)

// Config configures a workspace REST client.
type Config struct {
	// Host is the workspace URL, with or without the https:// scheme.
	Host  string
	Token string

	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	UserAgent string

	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to the REST APIs of a single Databricks workspace. Requests
// are issued one at a time by the caller and are never retried.
type Client struct {
	logger     log.FieldLogger
	host       string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(logger log.FieldLogger, cfg Config) (*Client, error) {
	host, err := NormalizeHost(cfg.Host)
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, errors.New("access token cannot be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		logger:    logger.WithFields(log.Fields{"component": "workspace", "host": host}),
		host:      host,
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}, nil
}

// NormalizeHost returns host as an https URL without a trailing slash.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.New("workspace host cannot be empty")
	}
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/"), nil
}

// Host returns the normalized workspace URL.
func (c *Client) Host() string {
	return c.host
}

// do sends a JSON request and decodes a 2xx JSON response into out. The
// raw response body is returned so callers can print it verbatim.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %v", err)
	}

	var body io.Reader
	if in != nil {
		enc, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("unable to encode %s %s request: %v", method, path, err)
		}
		body = bytes.NewReader(enc)
	}

	req, err := http.NewRequest(method, c.host+path, body)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s %s request: %v", method, path, err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := c.logger.WithFields(log.Fields{"method": method, "path": path})
	logger.Debugf("sending request")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s %s response: %v", method, path, err)
	}
	logger.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debugf("received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, newAPIError(method, path, resp.StatusCode, raw)
	}
	if out != nil && len(bytes.TrimSpace(raw)) != 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("unable to decode %s %s response: %v", method, path, err)
		}
	}
	return raw, nil
}
