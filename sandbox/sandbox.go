// Package sandbox exposes sandbox lifecycle operations.
package sandbox

import "context"

// URLs are the addresses a running sandbox is reachable at.
type URLs struct {
	PreviewURL string `json:"preview_url"`
	EditorURL  string `json:"editor_url"`
}

// Controller answers sandbox lifecycle requests. The real orchestration
// backend lives elsewhere; this returns the statically configured endpoints.
type Controller struct {
	urls URLs
}

func NewController(previewURL, editorURL string) *Controller {
	return &Controller{urls: URLs{PreviewURL: previewURL, EditorURL: editorURL}}
}

func (c *Controller) Start(ctx context.Context, sandboxID string) (URLs, error) {
	return c.urls, nil
}

func (c *Controller) Stop(ctx context.Context, sandboxID string) (URLs, error) {
	return c.urls, nil
}

func (c *Controller) Status(ctx context.Context, sandboxID string) (URLs, error) {
	return c.urls, nil
}
