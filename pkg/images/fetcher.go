package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"places_backend/pkg/apperr"
	"places_backend/pkg/circuitbreaker"
)

var errTooLarge = errors.New("remote image exceeds size limit")

// Fetcher downloads remote images with a bounded timeout. Each origin host has
// its own circuit breaker.
type Fetcher struct {
	client   *http.Client
	breakers *circuitbreaker.Group
	maxBytes int64
}

func NewFetcher(timeout time.Duration, maxBytes int64, breakers *circuitbreaker.Group) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		breakers: breakers,
		maxBytes: maxBytes,
	}
}

// Fetch returns the body and Content-Type of rawURL. Server errors and
// transport failures count against the host's breaker; 4xx answers do not.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", apperr.Validation("validation error",
			apperr.FieldError{Field: "sourceUrl", Error: "sourceUrl must be a valid http(s) URL"})
	}

	var (
		data        []byte
		contentType string
		status      int
		tooLarge    bool
	)
	err = f.breakers.Get(strings.ToLower(u.Host)).Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		switch {
		case status >= 500:
			return fmt.Errorf("image source responded with status %d", status)
		case status < 200 || status > 299:
			return nil
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return err
		}
		if int64(len(data)) > f.maxBytes {
			tooLarge = true
			return nil
		}
		contentType = resp.Header.Get("Content-Type")
		return nil
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return nil, "", apperr.Unavailable("Image source temporarily unavailable", err)
	case err != nil:
		return nil, "", apperr.Unavailable("Failed to fetch image", err)
	case status < 200 || status > 299:
		return nil, "", apperr.Unavailable(fmt.Sprintf("Image source responded with status %d", status), nil)
	case tooLarge:
		return nil, "", apperr.Validation("Image too large",
			apperr.FieldError{Field: "sourceUrl", Error: errTooLarge.Error()})
	}
	return data, contentType, nil
}
