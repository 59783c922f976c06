package ipgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

const DefaultURL = "https://api.ipgeolocation.io/ipgeo"

type LookupRequest struct {
	IP string
}

type LookupResponse struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code2"`
}

type Config struct {
	URL     string
	APIKey  string
	Country string
	Timeout time.Duration
}

type Client struct {
	url     string
	apiKey  string
	country string
	timeout time.Duration
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid ipgeo url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Country == "" {
		cfg.Country = "IR"
	}

	return &Client{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		country: strings.ToUpper(cfg.Country),
		timeout: cfg.Timeout,
		http:    &http.Client{},
	}, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Lookup asks the geolocation service for the country of req.IP.
func (c *Client) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("ip", req.IP)
	q.Set("fields", "country_code2")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", req.IP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lookup %s: status %d: %s", req.IP, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	return &out, nil
}

// Qualifies reports whether ip is a valid literal located in the configured country.
// Malformed literals are a negative answer, not an error.
func (c *Client) Qualifies(ctx context.Context, ip string) (bool, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false, nil
	}

	resp, err := c.Lookup(ctx, &LookupRequest{IP: addr.String()})
	if err != nil {
		return false, err
	}
	return strings.EqualFold(resp.CountryCode, c.country), nil
}
