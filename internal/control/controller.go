// Package control runs one-shot browser commands against a running Chrome,
// including snapshots of the mirrored DOM.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/ajsharma/dom_tail/internal/mirror"
	"github.com/ajsharma/dom_tail/internal/monitor"
)

// Controller drives the first page target of a Chrome instance.
type Controller struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	timeout    time.Duration
}

// NewController creates a controller for the Chrome debugging port. The
// connection is made by the first command.
func NewController(port string) (*Controller, error) {
	allocatorCtx, allocatorCancel := chromedp.NewRemoteAllocator(context.Background(),
		"http://localhost:"+port)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	return &Controller{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocatorCancel()
		},
		timeout: 30 * time.Second,
	}, nil
}

// SetTimeout sets the timeout of each command.
func (c *Controller) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Close releases resources.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(c.browserCtx, c.timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate navigates to the specified URL.
func (c *Controller) Navigate(url string) error {
	return c.run(chromedp.Navigate(url))
}

// Reload reloads the current page.
func (c *Controller) Reload() error {
	return c.run(chromedp.Reload())
}

// Back navigates back in history.
func (c *Controller) Back() error {
	return c.run(chromedp.NavigateBack())
}

// Forward navigates forward in history.
func (c *Controller) Forward() error {
	return c.run(chromedp.NavigateForward())
}

// Click clicks on an element matching the selector.
func (c *Controller) Click(selector string) error {
	return c.run(
		chromedp.WaitVisible(selector),
		chromedp.Click(selector),
	)
}

// Type replaces the value of an element matching the selector.
func (c *Controller) Type(selector, text string) error {
	return c.run(
		chromedp.WaitVisible(selector),
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, text),
	)
}

// Evaluate executes JavaScript and returns the result as JSON.
func (c *Controller) Evaluate(js string) (string, error) {
	var result interface{}
	if err := c.run(chromedp.Evaluate(js, &result)); err != nil {
		return "", err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Screenshot captures the viewport as PNG.
func (c *Controller) Screenshot() ([]byte, error) {
	var buf []byte
	if err := c.run(chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetText retrieves the text content of an element.
func (c *Controller) GetText(selector string) (string, error) {
	var text string
	err := c.run(
		chromedp.WaitVisible(selector),
		chromedp.Text(selector, &text),
	)
	return text, err
}

// GetAttribute retrieves an attribute value from an element.
func (c *Controller) GetAttribute(selector, attribute string) (string, error) {
	var (
		value string
		ok    bool
	)
	err := c.run(
		chromedp.WaitReady(selector),
		chromedp.AttributeValue(selector, attribute, &value, &ok),
	)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("attribute %q not found on %q", attribute, selector)
	}
	return value, nil
}

// GetHTML retrieves the outer HTML of an element.
func (c *Controller) GetHTML(selector string) (string, error) {
	var html string
	err := c.run(
		chromedp.WaitReady(selector),
		chromedp.OuterHTML(selector, &html),
	)
	return html, err
}

// GetTitle returns the current page title.
func (c *Controller) GetTitle() (string, error) {
	var title string
	err := c.run(chromedp.Title(&title))
	return title, err
}

// GetURL returns the current page URL.
func (c *Controller) GetURL() (string, error) {
	var url string
	err := c.run(chromedp.Location(&url))
	return url, err
}

// Snapshot fetches the whole document, shadow trees and frames included,
// and loads it into a fresh mirror.
func (c *Controller) Snapshot() (*mirror.Synchronizer, error) {
	var root *cdp.Node
	err := c.run(chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		root, err = dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return snapshotOf(root), nil
}

func snapshotOf(root *cdp.Node) *mirror.Synchronizer {
	s := mirror.NewSynchronizer()
	s.SetDocument(monitor.PayloadFromNode(root))
	return s
}
