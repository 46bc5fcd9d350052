package ics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
)

// maxFeedBytes bounds a downloaded calendar.
const maxFeedBytes = 8 << 20

// Fetcher downloads remote calendars for import.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher using client, or a client with a 15 second
// timeout when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch downloads rawURL. webcal:// links are fetched over https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, "build request")
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	appLog.Info("ics fetch start", "url", redactURL(u))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "fetch %s", redactURL(u))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.CodeUnavailable, "fetch %s: %s", redactURL(u), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "read %s", redactURL(u))
	}
	if len(body) > maxFeedBytes {
		return nil, apperr.New(apperr.CodeInvalidArgument, "calendar at %s exceeds %d bytes", redactURL(u), maxFeedBytes)
	}

	appLog.Info("ics fetch success", "url", redactURL(u), "bytes", len(body))
	return body, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "webcal://"); ok {
		raw = "https://" + rest
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.New(apperr.CodeInvalidArgument, "invalid calendar URL %q", raw)
	}
	return u.String(), nil
}

// redactURL keeps only the scheme and host; private feed URLs usually
// embed a secret token in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return fmt.Sprintf("%s://%s/...(redacted)", u.Scheme, u.Host)
}
