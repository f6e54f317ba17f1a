// Package custody is a client for the external key custody and encryption
// service. The service performs the actual crypto and reports back through
// the job-result webhook.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/merklebot/storage/internal/common"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateKey asks the custody service to mint a new AES key and returns its
// value.
func (c *Client) CreateKey(ctx context.Context) (string, error) {
	var resp struct {
		AesKey string `json:"aes_key"`
	}
	if err := c.post(ctx, "/keys/", map[string]any{}, &resp); err != nil {
		return "", err
	}
	return resp.AesKey, nil
}

// StartEncryption kicks off encryption of the content addressed by
// originalCid. Completion is delivered asynchronously to webhookURL.
func (c *Client) StartEncryption(ctx context.Context, originalCid, aesKey, webhookURL string) error {
	return c.post(ctx, "/content/methods/process_encryption", map[string]any{
		"original_cid": originalCid,
		"aes_key":      aesKey,
		"webhook_url":  webhookURL,
	}, nil)
}

// StartDecryption kicks off decryption; completion is delivered to webhookURL.
func (c *Client) StartDecryption(ctx context.Context, originalCid, aesKey, webhookURL string) error {
	return c.post(ctx, "/content/methods/process_decryption", map[string]any{
		"original_cid": originalCid,
		"aes_key":      aesKey,
		"webhook_url":  webhookURL,
	}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: custody %s: %v", common.ErrorUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: custody %s: status %d", common.ErrorUpstreamUnavailable, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("custody response decode: %w", err)
		}
	}
	return nil
}
