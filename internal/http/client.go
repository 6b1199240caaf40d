// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/wneessen/geonear/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 30

	// MaxBodySize limits the size of a downloaded response body
	MaxBodySize = 512 << 20
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) geonear/%s (+https://github.com/wneessen/geonear/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	ErrNilWriter    = errors.New("target writer must not be nil")
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")
)

// StatusError is returned when the remote server answers with a non-successful status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client is a type wrapper for the Go stdlib http.Client and the Logger
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: httpTransport,
	}
	return &Client{httpClient, logger}
}

// Download performs a HTTP GET request for the given URL and copies the response body into target
func (h *Client) Download(ctx context.Context, endpoint string, target io.Writer, headers map[string]string) (int, error) {
	return h.DownloadWithTimeout(ctx, endpoint, target, headers, DefaultTimeout)
}

// DownloadWithTimeout performs a HTTP GET request for the given URL and timeout and copies the
// response body into target. Responses with a status code of 400 or above are returned as
// *StatusError and their body is discarded.
func (h *Client) DownloadWithTimeout(ctx context.Context, endpoint string, target io.Writer, headers map[string]string,
	timeout time.Duration,
) (int, error) {
	if target == nil {
		return 0, ErrNilWriter
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return 0, errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			h.logger.Error("failed to close HTTP request body", logger.Err(err))
		}
	}(response.Body)

	if response.StatusCode >= http.StatusBadRequest {
		return response.StatusCode, &StatusError{StatusCode: response.StatusCode}
	}

	written, err := io.Copy(target, io.LimitReader(response.Body, MaxBodySize+1))
	if err != nil {
		return response.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if written > MaxBodySize {
		return response.StatusCode, ErrBodyTooLarge
	}

	return response.StatusCode, nil
}
