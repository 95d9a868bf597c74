package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/ajsharma/dom_tail/internal/metrics"
	"github.com/ajsharma/dom_tail/internal/mirror"
)

// chromeHost implements mirror.Host with DOM domain commands on one target.
type chromeHost struct {
	targetCtx context.Context
	metrics   *metrics.Metrics
}

func newChromeHost(targetCtx context.Context, m *metrics.Metrics) *chromeHost {
	return &chromeHost{targetCtx: targetCtx, metrics: m}
}

// run executes fn against the target. The caller's ctx bounds the wait; the
// command itself is issued on the target context chromedp knows about.
func (h *chromeHost) run(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	start := time.Now()
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(h.targetCtx, chromedp.ActionFunc(fn))
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if h.metrics != nil {
		h.metrics.ObserveHostRequest(method, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (h *chromeHost) GetDocument(ctx context.Context, depth int, pierce bool) (*mirror.Payload, error) {
	var root *cdp.Node
	err := h.run(ctx, "DOM.getDocument", func(ctx context.Context) error {
		var err error
		root, err = dom.GetDocument().WithDepth(int64(depth)).WithPierce(pierce).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return PayloadFromNode(root), nil
}

func (h *chromeHost) RequestChildNodes(ctx context.Context, id mirror.NodeID, depth int, pierce bool) error {
	return h.run(ctx, "DOM.requestChildNodes", func(ctx context.Context) error {
		return dom.RequestChildNodes(cdp.NodeID(id)).WithDepth(int64(depth)).WithPierce(pierce).Do(ctx)
	})
}

func (h *chromeHost) GetAttributes(ctx context.Context, id mirror.NodeID) ([]string, error) {
	var attrs []string
	err := h.run(ctx, "DOM.getAttributes", func(ctx context.Context) error {
		var err error
		attrs, err = dom.GetAttributes(cdp.NodeID(id)).Do(ctx)
		return err
	})
	return attrs, err
}

func (h *chromeHost) GetOuterHTML(ctx context.Context, id mirror.NodeID) (string, error) {
	var html string
	err := h.run(ctx, "DOM.getOuterHTML", func(ctx context.Context) error {
		var err error
		html, err = dom.GetOuterHTML().WithNodeID(cdp.NodeID(id)).Do(ctx)
		return err
	})
	return html, err
}

// ResolveNode returns the remote object id of the node's JS wrapper.
func (h *chromeHost) ResolveNode(ctx context.Context, id mirror.NodeID, objectGroup string) (string, error) {
	var objectID string
	err := h.run(ctx, "DOM.resolveNode", func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(cdp.NodeID(id)).WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		objectID = string(obj.ObjectID)
		return nil
	})
	return objectID, err
}

func (h *chromeHost) PushNodesByBackendIDs(ctx context.Context, ids []mirror.BackendNodeID) ([]mirror.NodeID, error) {
	var pushed []cdp.NodeID
	err := h.run(ctx, "DOM.pushNodesByBackendIdsToFrontend", func(ctx context.Context) error {
		var err error
		pushed, err = dom.PushNodesByBackendIDsToFrontend(backendIDs(ids)).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nodeIDs(pushed), nil
}
