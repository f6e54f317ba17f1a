// Package archive is a client for the external replication/pinning manager
// that feeds the Filecoin deal-making workforce.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

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

// ContentAdd announces a CID for replication.
func (c *Client) ContentAdd(ctx context.Context, cid string, fileSize int64) error {
	return c.postForm(ctx, "/content.add", url.Values{
		"cid":      {cid},
		"fileSize": {strconv.FormatInt(fileSize, 10)},
	})
}

// PinAdd asks the manager to re-pin a CID, triggering a restore.
func (c *Client) PinAdd(ctx context.Context, cid string) error {
	return c.postForm(ctx, "/pin.add", url.Values{
		"cid": {cid},
	})
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: archive %s: %v", common.ErrorUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: archive %s: status %d", common.ErrorUpstreamUnavailable, path, resp.StatusCode)
	}
	return nil
}
