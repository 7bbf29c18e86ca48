package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// WatchDirectories lists the server's inbox directories.
func (c *HTTPClient) WatchDirectories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/watch/directories", nil, "", &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// AddWatchDirectory asks the server to watch path. With syncExisting, files already in
// it are ingested too.
func (c *HTTPClient) AddWatchDirectory(ctx context.Context, path string, syncExisting bool) error {
	body, err := json.Marshal(map[string]interface{}{"path": path, "sync": syncExisting})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body), "application/json", nil)
}

// RemoveWatchDirectory asks the server to stop watching path.
func (c *HTTPClient) RemoveWatchDirectory(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), nil, "", nil)
}
