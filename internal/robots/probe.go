// Package robots fetches and summarizes a host's robots.txt. The summary is
// purely descriptive; nothing in the collector gates on it.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

var retryBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// samplePaths are representative collector paths evaluated against the
// fetched rules, one verdict per path.
var samplePaths = []string{
	"/",
	"/profile.php",
	"/people/",
	"/friends/",
	"/public/",
}

// Report summarizes one robots.txt probe.
type Report struct {
	Host            string          `json:"host"`
	StatusCode      int             `json:"status_code"`
	AllowedPaths    []string        `json:"allowed_paths"`
	DisallowedPaths []string        `json:"disallowed_paths"`
	CrawlDelay      time.Duration   `json:"crawl_delay"`
	Sitemaps        []string        `json:"sitemaps,omitempty"`
	PathVerdicts    map[string]bool `json:"path_verdicts"`
	FetchedAt       time.Time       `json:"fetched_at"`
}

// Prober fetches robots.txt over plain HTTP.
type Prober struct {
	client    *http.Client
	userAgent string
}

// NewProber builds a prober. A nil client falls back to a default with a
// 15 second timeout.
func NewProber(client *http.Client, userAgent string) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Prober{client: client, userAgent: userAgent}
}

// Probe fetches https://<host>/robots.txt and builds a report. Transient
// network failures are retried with backoff before giving up.
func (p *Prober) Probe(ctx context.Context, host string) (*Report, error) {
	robotsURL := fmt.Sprintf("https://%s/robots.txt", host)
	if strings.Contains(host, "://") {
		robotsURL = strings.TrimRight(host, "/") + "/robots.txt"
	}

	status, body, err := p.fetchWithRetry(ctx, robotsURL)
	if err != nil {
		return nil, err
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	agent := p.userAgent
	if agent == "" {
		agent = "*"
	}
	group := data.FindGroup(agent)

	report := &Report{
		Host:         host,
		StatusCode:   status,
		PathVerdicts: make(map[string]bool, len(samplePaths)),
		FetchedAt:    time.Now().UTC(),
	}
	if group != nil {
		report.CrawlDelay = group.CrawlDelay
	}
	for _, path := range samplePaths {
		report.PathVerdicts[path] = data.TestAgent(path, agent)
	}
	scanDirectives(body, report)
	return report, nil
}

func (p *Prober) fetchWithRetry(ctx context.Context, robotsURL string) (int, []byte, error) {
	maxAttempts := len(retryBackoff) + 1
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, retryBackoff[attempt-1]); err != nil {
				return 0, nil, err
			}
		}

		status, body, err := p.fetchOnce(ctx, robotsURL)
		if err == nil {
			return status, body, nil
		}
		lastErr = err
		if !isTransient(err) {
			return 0, nil, err
		}
	}
	return 0, nil, fmt.Errorf("robots probe exhausted retries: %w", lastErr)
}

func (p *Prober) fetchOnce(ctx context.Context, robotsURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build robots request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read robots body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// scanDirectives walks the wildcard group line by line to collect the path
// lists the parser does not expose.
func scanDirectives(body []byte, report *Report) {
	inWildcard := false
	sawGroupHeader := false

	for _, raw := range strings.Split(string(body), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		directive, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		directive = strings.ToLower(strings.TrimSpace(directive))
		value = strings.TrimSpace(value)

		switch directive {
		case "user-agent":
			// Consecutive user-agent lines share one group.
			if sawGroupHeader {
				inWildcard = inWildcard || value == "*"
			} else {
				inWildcard = value == "*"
			}
			sawGroupHeader = true
			continue
		case "sitemap":
			report.Sitemaps = append(report.Sitemaps, value)
			sawGroupHeader = false
			continue
		}
		sawGroupHeader = false

		if !inWildcard || value == "" {
			continue
		}
		switch directive {
		case "allow":
			report.AllowedPaths = append(report.AllowedPaths, value)
		case "disallow":
			report.DisallowedPaths = append(report.DisallowedPaths, value)
		}
	}

	sort.Strings(report.AllowedPaths)
	sort.Strings(report.DisallowedPaths)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("robots backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "tls: handshake timeout")
}
