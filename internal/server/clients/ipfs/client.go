// Package ipfs is a thin client for the IPFS node HTTP API (add, cat, pin,
// stat). All calls carry the configured request timeout.
package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/merklebot/storage/internal/common"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// AddResult is the node's response to /api/v0/add.
type AddResult struct {
	Cid  string
	Size int64
}

// Add uploads bytes to the node and returns the resulting CIDv1 and size.
func (c *Client) Add(ctx context.Context, name string, data io.Reader) (*AddResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("upload-files", name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, data); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v0/add?cid-version=1", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ipfs add: %v", common.ErrorUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ipfs add: status %d", common.ErrorUpstreamUnavailable, resp.StatusCode)
	}

	// The node returns Size as a decimal string.
	var body struct {
		Name string `json:"Name"`
		Hash string `json:"Hash"`
		Size string `json:"Size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ipfs add response decode: %w", err)
	}

	if _, err := cid.Decode(body.Hash); err != nil {
		return nil, fmt.Errorf("ipfs add returned invalid cid %q: %w", body.Hash, err)
	}
	size, err := strconv.ParseInt(body.Size, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ipfs add returned invalid size %q: %w", body.Size, err)
	}

	return &AddResult{Cid: body.Hash, Size: size}, nil
}

// Get streams the content addressed by id. The caller owns the returned body.
func (c *Client) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v0/get?arg="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ipfs get: %v", common.ErrorUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: ipfs get: status %d", common.ErrorUpstreamUnavailable, resp.StatusCode)
	}
	return resp.Body, nil
}

// Pin asks the node to pin the given CID.
func (c *Client) Pin(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v0/pin/add?arg="+url.QueryEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ipfs pin: %v", common.ErrorUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ipfs pin: status %d", common.ErrorUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}

// Stat returns the cumulative DAG size of the given CID.
func (c *Client) Stat(ctx context.Context, id string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v0/object/stat?arg="+url.QueryEscape(id), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: ipfs stat: %v", common.ErrorUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: ipfs stat: status %d", common.ErrorUpstreamUnavailable, resp.StatusCode)
	}

	var body struct {
		CumulativeSize int64 `json:"CumulativeSize"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("ipfs stat response decode: %w", err)
	}
	return body.CumulativeSize, nil
}
