// Package client talks to the KSeF submission endpoint over mutual TLS.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marlink/accountant/pkg/config"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
)

// Client submits rendered FA documents. The TLS channel is constructed once
// and reused across every attempt of a run; Submit never mutates state.
type Client struct {
	httpClient *http.Client
	sendURL    string
}

// submitResponse is the accepted-reply shape. The remote identifier appears
// under either field name depending on the endpoint version.
type submitResponse struct {
	KsefID string `json:"ksefId"`
	ID     string `json:"id"`
}

type remoteError struct {
	Code string `json:"code"`
}

// New builds a submission client from the endpoint configuration and the
// already-decoded certificate material.
func New(cfg config.KSeFConfig, creds *Credentials) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "ksef base url missing")
	}
	if creds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "ksef credentials missing")
	}

	sendPath := cfg.SendPath
	if sendPath == "" {
		sendPath = "/invoices"
	}

	transport := &http.Transport{TLSClientConfig: creds.TLSConfig()}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		sendURL: strings.TrimRight(cfg.BaseURL, "/") + sendPath,
	}, nil
}

// NewWithHTTPClient is the test seam: it skips TLS material and accepts a
// prepared http.Client.
func NewWithHTTPClient(httpClient *http.Client, baseURL, sendPath string) *Client {
	return &Client{
		httpClient: httpClient,
		sendURL:    strings.TrimRight(baseURL, "/") + sendPath,
	}
}

// Submit posts one rendered document and returns the remote identifier.
// Non-2xx replies surface as *StatusError. A 2xx reply must carry a JSON
// body; an unparseable one fails the attempt so the caller retries. When
// the body parses but carries neither identifier field, a synthesized
// "KSEF-<invoiceID>" identifier is returned and treated as success,
// mirroring what downstream consumers already record.
func (c *Client) Submit(ctx context.Context, invoiceID string, document []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("building submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading submit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var remote remoteError
		if json.Unmarshal(body, &remote) == nil {
			statusErr.RemoteCode = remote.Code
		}
		return "", statusErr
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing submit response: %w", err)
	}
	switch {
	case parsed.KsefID != "":
		return parsed.KsefID, nil
	case parsed.ID != "":
		return parsed.ID, nil
	}
	return "KSEF-" + invoiceID, nil
}
