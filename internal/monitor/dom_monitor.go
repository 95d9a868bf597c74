// Package monitor mirrors the DOM of a single browser tab and journals
// its mutations.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/overlay"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ajsharma/dom_tail/internal/config"
	"github.com/ajsharma/dom_tail/internal/events"
	"github.com/ajsharma/dom_tail/internal/logger"
	"github.com/ajsharma/dom_tail/internal/metrics"
	"github.com/ajsharma/dom_tail/internal/mirror"
	"github.com/ajsharma/dom_tail/internal/redact"
)

const (
	// inboxSize is the number of undelivered items a tab can queue before
	// CDP event delivery blocks.
	inboxSize = 4096

	// maxBurst bounds how many queued items run before pending mutation
	// ticks are forced through.
	maxBurst = 256

	// ObjectGroup is the remote object group used for resolved nodes.
	ObjectGroup = "dom-tail"

	// InspectedMarker marks the node last picked by an inspect request.
	InspectedMarker = "inspected"
)

var (
	// ErrStopped is returned for requests that outlive the monitor.
	ErrStopped = errors.New("monitor stopped")

	// ErrNoHost is returned when a request needs the browser before the
	// monitor is attached to it.
	ErrNoHost = errors.New("monitor not attached to a target")
)

// Option configures a DOMMonitor.
type Option func(*DOMMonitor)

// WithLogger sets the operator logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *DOMMonitor) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *DOMMonitor) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithHost attaches a host up front instead of the CDP host created by
// Start.
func WithHost(h mirror.Host) Option {
	return func(m *DOMMonitor) { m.host = h }
}

// DOMMonitor keeps a mirror of one tab's DOM. All mirror access happens on
// a single loop goroutine; CDP events, host responses and Do closures are
// queued onto it in arrival order.
type DOMMonitor struct {
	targetID    string
	tabID       string
	currentSite string
	currentURL  string
	title       string
	sessionID   string
	startTime   time.Time

	fileManager *logger.FileManager
	config      *config.Config
	redactor    *redact.Redactor
	metrics     *metrics.Metrics
	log         *zap.Logger
	host        mirror.Host

	// Loop-owned state.
	mirror      *mirror.Synchronizer
	ticks       []func()
	styleTimer  *time.Timer
	docEpoch    int
	docFetching bool
	docWaiters  []*mirror.Future[*mirror.Node]
	held        []interface{}
	inspected   *mirror.Node

	inbox    chan func()
	inboxMu  sync.RWMutex
	closed   bool
	loopDone chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewDOMMonitor creates a monitor and starts its loop. The monitor is not
// attached to the browser until Start is called.
func NewDOMMonitor(
	parentCtx context.Context,
	targetID, tabID, site, title, url, sessionID string,
	fm *logger.FileManager,
	cfg *config.Config,
	opts ...Option,
) *DOMMonitor {
	ctx, cancel := context.WithCancel(parentCtx)

	m := &DOMMonitor{
		targetID:    targetID,
		tabID:       tabID,
		currentSite: site,
		currentURL:  url,
		title:       title,
		sessionID:   sessionID,
		startTime:   time.Now(),
		fileManager: fm,
		config:      cfg,
		redactor:    redact.New(cfg.Redact),
		log:         zap.NewNop(),
		inbox:       make(chan func(), inboxSize),
		loopDone:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	m.log = m.log.With(zap.String("tab", tabID))

	syncOpts := []mirror.Option{
		mirror.WithStaleFunc(m.onStale),
		mirror.WithViolationFunc(m.onViolation),
	}
	if cfg.MutationCoalescing {
		syncOpts = append(syncOpts, mirror.WithScheduler(m.schedule))
	}
	m.mirror = mirror.NewSynchronizer(syncOpts...)
	m.mirror.Subscribe(mirror.ObserverFunc(m.journal))

	go m.loop()
	return m
}

// Start attaches to the tab, enables the DOM domain, fetches the document
// and mirrors the tab until the monitor is stopped or the target goes away.
func (m *DOMMonitor) Start(browserCtx context.Context) error {
	targetCtx, cancel := chromedp.NewContext(browserCtx,
		chromedp.WithTargetID(target.ID(m.targetID)),
	)
	defer cancel()

	if err := chromedp.Run(targetCtx,
		page.Enable(),
		dom.Enable(),
		overlay.Enable(),
	); err != nil {
		return fmt.Errorf("enable domains for %s: %w", m.tabID, err)
	}

	m.mu.Lock()
	if m.host == nil {
		m.host = newChromeHost(targetCtx, m.metrics)
	}
	site, url := m.currentSite, m.currentURL
	m.mu.Unlock()

	m.writeEvent(events.NewTabCreatedEvent(
		site,
		m.tabID,
		m.sessionID,
		m.targetID,
		m.title,
		m.redactor.RedactURL(url),
	))
	m.metrics.TabStarted()
	m.started.Store(true)

	// The manager owns target lifecycle; only page and DOM events are
	// consumed here.
	chromedp.ListenTarget(targetCtx, m.dispatch)

	doc := m.RequestDocument()
	go func() {
		if _, err := doc.Await(m.ctx); err != nil && m.ctx.Err() == nil {
			m.log.Warn("initial document request failed", zap.Error(err))
		}
	}()

	select {
	case <-m.ctx.Done():
	case <-targetCtx.Done():
	}
	return nil
}

// dispatch queues the CDP events the mirror consumes. It runs on
// chromedp's event goroutine and must not block for long.
func (m *DOMMonitor) dispatch(ev interface{}) {
	switch ev.(type) {
	case *dom.EventDocumentUpdated,
		*dom.EventSetChildNodes,
		*dom.EventChildNodeInserted,
		*dom.EventChildNodeRemoved,
		*dom.EventAttributeModified,
		*dom.EventAttributeRemoved,
		*dom.EventInlineStyleInvalidated,
		*dom.EventCharacterDataModified,
		*dom.EventChildNodeCountUpdated,
		*dom.EventShadowRootPushed,
		*dom.EventShadowRootPopped,
		*dom.EventPseudoElementAdded,
		*dom.EventPseudoElementRemoved,
		*dom.EventDistributedNodesUpdated,
		*overlay.EventInspectNodeRequested,
		*page.EventFrameNavigated:
		m.post(func() { m.apply(ev) })
	}
}

// post queues fn onto the loop. It reports false once the monitor has
// stopped.
func (m *DOMMonitor) post(fn func()) bool {
	m.inboxMu.RLock()
	defer m.inboxMu.RUnlock()
	if m.closed || m.ctx.Err() != nil {
		return false
	}
	select {
	case m.inbox <- fn:
		return true
	case <-m.ctx.Done():
		return false
	}
}

// schedule is the mirror's tick source. Ticks run once the queue is idle
// or after maxBurst items, whichever comes first.
func (m *DOMMonitor) schedule(fn func()) {
	m.ticks = append(m.ticks, fn)
}

func (m *DOMMonitor) loop() {
	defer close(m.loopDone)
	for {
		if len(m.ticks) == 0 {
			select {
			case fn := <-m.inbox:
				fn()
			case <-m.ctx.Done():
				m.shutdown()
				return
			}
			continue
		}
		m.drain(maxBurst)
		m.runTicks()
	}
}

func (m *DOMMonitor) drain(limit int) {
	for range limit {
		select {
		case fn := <-m.inbox:
			fn()
		default:
			return
		}
	}
}

func (m *DOMMonitor) runTicks() {
	for len(m.ticks) > 0 {
		ticks := m.ticks
		m.ticks = nil
		for _, fn := range ticks {
			fn()
		}
	}
}

// shutdown runs what is still queued and fails outstanding document
// requests.
func (m *DOMMonitor) shutdown() {
	m.inboxMu.Lock()
	m.closed = true
	m.inboxMu.Unlock()

	for drained := false; !drained; {
		select {
		case fn := <-m.inbox:
			fn()
		default:
			drained = true
		}
	}
	m.runTicks()

	if m.styleTimer != nil {
		m.styleTimer.Stop()
		m.styleTimer = nil
	}
	for _, f := range m.docWaiters {
		f.Resolve(nil, ErrStopped)
	}
	m.docWaiters = nil
}

// apply feeds one CDP event to the mirror.
func (m *DOMMonitor) apply(ev interface{}) {
	if m.docFetching && holdWhileFetching(ev) {
		m.held = append(m.held, ev)
		return
	}

	switch ev := ev.(type) {
	case *dom.EventDocumentUpdated:
		m.docEpoch++
		m.held = nil
		m.mirror.DocumentUpdated()
		m.fetchDocument()

	case *dom.EventSetChildNodes:
		m.mirror.SetChildren(mirror.NodeID(ev.ParentID), PayloadsFromNodes(ev.Nodes))

	case *dom.EventChildNodeInserted:
		if p := PayloadFromNode(ev.Node); p != nil {
			m.mirror.InsertChild(mirror.NodeID(ev.ParentNodeID), mirror.NodeID(ev.PreviousNodeID), p)
		}

	case *dom.EventChildNodeRemoved:
		m.mirror.RemoveChild(mirror.NodeID(ev.ParentNodeID), mirror.NodeID(ev.NodeID))

	case *dom.EventAttributeModified:
		m.mirror.AttributeModified(mirror.NodeID(ev.NodeID), ev.Name, ev.Value)

	case *dom.EventAttributeRemoved:
		m.mirror.AttributeRemoved(mirror.NodeID(ev.NodeID), ev.Name)

	case *dom.EventInlineStyleInvalidated:
		m.mirror.InlineStyleInvalidated(nodeIDs(ev.NodeIDs))
		m.scheduleStyleReload()

	case *dom.EventCharacterDataModified:
		m.mirror.CharacterDataModified(mirror.NodeID(ev.NodeID), ev.CharacterData)

	case *dom.EventChildNodeCountUpdated:
		m.mirror.ChildNodeCountUpdated(mirror.NodeID(ev.NodeID), int(ev.ChildNodeCount))

	case *dom.EventShadowRootPushed:
		if p := PayloadFromNode(ev.Root); p != nil {
			m.mirror.ShadowRootPushed(mirror.NodeID(ev.HostID), p)
		}

	case *dom.EventShadowRootPopped:
		m.mirror.ShadowRootPopped(mirror.NodeID(ev.HostID), mirror.NodeID(ev.RootID))

	case *dom.EventPseudoElementAdded:
		if p := PayloadFromNode(ev.PseudoElement); p != nil {
			m.mirror.PseudoElementAdded(mirror.NodeID(ev.ParentID), p)
		}

	case *dom.EventPseudoElementRemoved:
		m.mirror.PseudoElementRemoved(mirror.NodeID(ev.ParentID), mirror.NodeID(ev.PseudoElementID))

	case *dom.EventDistributedNodesUpdated:
		m.mirror.DistributedNodesUpdated(mirror.NodeID(ev.InsertionPointID), shortcutsFromBackend(ev.DistributedNodes))

	case *overlay.EventInspectNodeRequested:
		backendID := mirror.BackendNodeID(ev.BackendNodeID)
		m.mirror.InspectNodeRequested(backendID)
		m.markInspected(backendID)

	case *page.EventFrameNavigated:
		if ev.Frame != nil && ev.Frame.ParentID == "" { // Main frame only
			m.mu.Lock()
			m.currentURL = ev.Frame.URL
			site := m.currentSite
			m.mu.Unlock()

			m.writeEvent(events.NewPageNavigateEvent(
				site,
				m.tabID,
				m.redactor.RedactURL(ev.Frame.URL),
				string(ev.Frame.ID),
			))
		}
	}

	m.metrics.SetMirroredNodes(m.tabID, m.mirror.Len())
}

// holdWhileFetching reports whether an event refers to node ids that may
// belong to a document whose snapshot has not been applied yet.
func holdWhileFetching(ev interface{}) bool {
	switch ev.(type) {
	case *dom.EventDocumentUpdated, *overlay.EventInspectNodeRequested, *page.EventFrameNavigated:
		return false
	default:
		return true
	}
}

// Do runs fn on the loop with exclusive access to the mirror and waits for
// it to finish. It must not be called from an observer or from fn itself.
func (m *DOMMonitor) Do(ctx context.Context, fn func(*mirror.Synchronizer)) error {
	done := make(chan struct{})
	if !m.post(func() {
		defer close(done)
		fn(m.mirror)
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *DOMMonitor) getHost() mirror.Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.host
}

// callHost runs call off the loop and resolves f on the loop with the
// result of settle.
func callHost[T, R any](
	m *DOMMonitor,
	f *mirror.Future[R],
	call func(ctx context.Context, h mirror.Host) (T, error),
	settle func(T, error) (R, error),
) {
	host := m.getHost()
	if host == nil {
		var zero R
		f.Resolve(zero, ErrNoHost)
		return
	}
	go func() {
		val, err := call(m.ctx, host)
		if !m.post(func() { f.Resolve(settle(val, err)) }) {
			var zero R
			f.Resolve(zero, ErrStopped)
		}
	}()
}

// RequestDocument resolves to the mirrored document, fetching it from the
// browser if there is none. Concurrent requests share one fetch.
func (m *DOMMonitor) RequestDocument() *mirror.Future[*mirror.Node] {
	f := mirror.NewFuture[*mirror.Node]()
	if !m.post(func() {
		if doc := m.mirror.Document(); doc != nil {
			f.Resolve(doc, nil)
			return
		}
		m.docWaiters = append(m.docWaiters, f)
		m.fetchDocument()
	}) {
		f.Resolve(nil, ErrStopped)
	}
	return f
}

// fetchDocument starts a document fetch unless one is in flight. Events
// that arrive meanwhile are held and replayed on top of the snapshot.
func (m *DOMMonitor) fetchDocument() {
	if m.docFetching {
		return
	}
	host := m.getHost()
	if host == nil {
		m.resolveDocWaiters(nil, ErrNoHost)
		return
	}

	m.docFetching = true
	epoch := m.docEpoch
	depth, pierce := m.config.DocumentDepth, m.config.Pierce
	go func() {
		p, err := host.GetDocument(m.ctx, depth, pierce)
		m.post(func() { m.documentFetched(epoch, p, err) })
	}()
}

func (m *DOMMonitor) documentFetched(epoch int, p *mirror.Payload, err error) {
	m.docFetching = false
	held := m.held
	m.held = nil

	if epoch != m.docEpoch {
		// The document was replaced while this snapshot was in flight.
		m.fetchDocument()
		return
	}
	if err != nil {
		if m.ctx.Err() != nil {
			err = ErrStopped
		}
		m.log.Warn("get document failed", zap.Error(err))
		m.resolveDocWaiters(nil, err)
		return
	}

	m.mirror.SetDocument(p)
	for _, ev := range held {
		m.apply(ev)
	}
	m.resolveDocWaiters(m.mirror.Document(), nil)
	m.metrics.SetMirroredNodes(m.tabID, m.mirror.Len())
}

func (m *DOMMonitor) resolveDocWaiters(doc *mirror.Node, err error) {
	for _, f := range m.docWaiters {
		f.Resolve(doc, err)
	}
	m.docWaiters = nil
}

// RequestChildren resolves to the children of a node, asking the browser
// for them when they are not mirrored yet or when depth asks for more than
// one level.
func (m *DOMMonitor) RequestChildren(id mirror.NodeID, depth int) *mirror.Future[[]*mirror.Node] {
	f := mirror.NewFuture[[]*mirror.Node]()
	if !m.post(func() {
		node := m.mirror.NodeForID(id)
		if node == nil {
			f.Resolve(nil, mirror.ErrUnknownNode)
			return
		}
		if depth == 0 {
			depth = 1
		}
		if children := node.Children(); children != nil && depth == 1 {
			f.Resolve(children, nil)
			return
		}
		callHost(m, f,
			func(ctx context.Context, h mirror.Host) (struct{}, error) {
				return struct{}{}, h.RequestChildNodes(ctx, id, depth, m.config.Pierce)
			},
			func(_ struct{}, err error) ([]*mirror.Node, error) {
				if err != nil {
					return nil, err
				}
				if m.mirror.NodeForID(id) != node {
					return nil, mirror.ErrNodeRemoved
				}
				return node.Children(), nil
			})
	}) {
		f.Resolve(nil, ErrStopped)
	}
	return f
}

// OuterHTML resolves to the markup of a node.
func (m *DOMMonitor) OuterHTML(id mirror.NodeID) *mirror.Future[string] {
	f := mirror.NewFuture[string]()
	if !m.post(func() {
		node := m.mirror.NodeForID(id)
		if node == nil {
			f.Resolve("", mirror.ErrUnknownNode)
			return
		}
		callHost(m, f,
			func(ctx context.Context, h mirror.Host) (string, error) {
				return h.GetOuterHTML(ctx, id)
			},
			func(html string, err error) (string, error) {
				if err != nil {
					return "", err
				}
				if m.mirror.NodeForID(id) != node {
					return "", mirror.ErrNodeRemoved
				}
				return html, nil
			})
	}) {
		f.Resolve("", ErrStopped)
	}
	return f
}

// ResolveNode resolves to the remote object id of a node's JS wrapper in
// ObjectGroup.
func (m *DOMMonitor) ResolveNode(id mirror.NodeID) *mirror.Future[string] {
	f := mirror.NewFuture[string]()
	if !m.post(func() {
		node := m.mirror.NodeForID(id)
		if node == nil {
			f.Resolve("", mirror.ErrUnknownNode)
			return
		}
		callHost(m, f,
			func(ctx context.Context, h mirror.Host) (string, error) {
				return h.ResolveNode(ctx, id, ObjectGroup)
			},
			func(objectID string, err error) (string, error) {
				if err != nil {
					return "", err
				}
				if m.mirror.NodeForID(id) != node {
					return "", mirror.ErrNodeRemoved
				}
				return objectID, nil
			})
	}) {
		f.Resolve("", ErrStopped)
	}
	return f
}

// ResolveDeferred pushes a backend node to the mirror and resolves to it.
func (m *DOMMonitor) ResolveDeferred(d mirror.DeferredNode) *mirror.Future[*mirror.Node] {
	f := mirror.NewFuture[*mirror.Node]()
	if !m.post(func() {
		callHost(m, f, pushBackendNode(d.BackendID), m.pushedNode)
	}) {
		f.Resolve(nil, ErrStopped)
	}
	return f
}

func pushBackendNode(id mirror.BackendNodeID) func(context.Context, mirror.Host) ([]mirror.NodeID, error) {
	return func(ctx context.Context, h mirror.Host) ([]mirror.NodeID, error) {
		return h.PushNodesByBackendIDs(ctx, []mirror.BackendNodeID{id})
	}
}

// pushedNode maps the result of a single-node push to the mirrored node.
func (m *DOMMonitor) pushedNode(ids []mirror.NodeID, err error) (*mirror.Node, error) {
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 || ids[0] == 0 {
		return nil, mirror.ErrUnknownNode
	}
	node := m.mirror.NodeForID(ids[0])
	if node == nil {
		return nil, mirror.ErrUnknownNode
	}
	return node, nil
}

// markInspected moves the inspected marker to the node behind backendID.
func (m *DOMMonitor) markInspected(backendID mirror.BackendNodeID) *mirror.Future[*mirror.Node] {
	f := mirror.NewFuture[*mirror.Node]()
	callHost(m, f, pushBackendNode(backendID), func(ids []mirror.NodeID, err error) (*mirror.Node, error) {
		node, err := m.pushedNode(ids, err)
		if err != nil {
			m.log.Debug("inspect request not resolved",
				zap.Int64("backend_node_id", int64(backendID)), zap.Error(err))
			return nil, err
		}
		if m.inspected != nil && m.inspected != node {
			m.mirror.SetMarker(m.inspected, InspectedMarker, nil)
		}
		m.inspected = node
		m.mirror.SetMarker(node, InspectedMarker, true)
		return node, nil
	})
	return f
}

// scheduleStyleReload debounces attribute reloads after inline style
// invalidation.
func (m *DOMMonitor) scheduleStyleReload() {
	if m.styleTimer != nil {
		return
	}
	m.styleTimer = time.AfterFunc(m.config.StyleReloadDelay, func() {
		m.post(m.reloadStyles)
	})
}

func (m *DOMMonitor) reloadStyles() {
	m.styleTimer = nil
	for _, id := range m.mirror.TakeInvalidatedAttributes() {
		m.reloadAttributes(id)
	}
}

// reloadAttributes fetches the attributes of a node and applies them if
// the node is still mirrored. It resolves to whether anything changed.
func (m *DOMMonitor) reloadAttributes(id mirror.NodeID) *mirror.Future[bool] {
	node := m.mirror.NodeForID(id)
	if node == nil {
		return mirror.Resolved(false, mirror.ErrUnknownNode)
	}
	f := mirror.NewFuture[bool]()
	callHost(m, f,
		func(ctx context.Context, h mirror.Host) ([]string, error) {
			return h.GetAttributes(ctx, id)
		},
		func(attrs []string, err error) (bool, error) {
			if err != nil {
				return false, err
			}
			if m.mirror.NodeForID(id) != node {
				return false, mirror.ErrNodeRemoved
			}
			return m.mirror.SetAttributes(id, attrs), nil
		})
	return f
}

func (m *DOMMonitor) onStale(op string, id mirror.NodeID) {
	m.metrics.ObserveStale(op)
	m.log.Debug("stale event ignored", zap.String("op", op), zap.Int64("node_id", int64(id)))
	m.writeEvent(events.NewStaleEvent(m.CurrentSite(), m.tabID, op, int64(id)))
}

func (m *DOMMonitor) onViolation(op string, id mirror.NodeID, reason string) {
	m.metrics.ObserveViolation(op)
	m.log.Warn("contract violation ignored",
		zap.String("op", op), zap.Int64("node_id", int64(id)), zap.String("reason", reason))
	m.writeEvent(events.NewContractViolationEvent(m.CurrentSite(), m.tabID, op, int64(id), reason))
}

// writeEvent writes an event to the log file.
func (m *DOMMonitor) writeEvent(ev *events.LogEvent) {
	// Errors are non-fatal - monitoring continues even if writes fail
	if err := m.fileManager.WriteEvent(m.tabID, ev); err != nil {
		m.log.Warn("write event failed", zap.String("event", ev.EventType), zap.Error(err))
	}
}

// HandleSiteChange handles navigation to a different site.
// Returns true if the site actually changed.
func (m *DOMMonitor) HandleSiteChange(newSite, newURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newSite == m.currentSite {
		m.currentURL = newURL
		return false
	}

	oldSite := m.currentSite
	redactedURL := m.redactor.RedactURL(newURL)

	m.writeEvent(events.NewSiteChangedEvent(oldSite, m.tabID, newSite, redactedURL))
	if err := m.fileManager.CloseTab(m.tabID, oldSite); err != nil {
		m.log.Warn("close site log failed", zap.String("site", oldSite), zap.Error(err))
	}

	m.currentSite = newSite
	m.currentURL = newURL

	m.writeEvent(events.NewSiteEnteredEvent(newSite, m.tabID, oldSite, redactedURL))
	return true
}

// Stop stops the loop, runs what was already queued, then closes the tab's
// logs on every site it visited. It is safe to call more than once.
func (m *DOMMonitor) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		<-m.loopDone

		m.mu.RLock()
		site := m.currentSite
		m.mu.RUnlock()

		m.writeEvent(events.NewTabClosedEvent(
			site,
			m.tabID,
			m.sessionID,
			m.targetID,
			time.Since(m.startTime).Seconds(),
		))
		if err := m.fileManager.CloseAllForTab(m.tabID); err != nil {
			m.log.Warn("close tab logs failed", zap.Error(err))
		}
		if m.started.Load() {
			m.metrics.TabStopped(m.tabID)
		}
	})
}

// TabID returns the tab ID.
func (m *DOMMonitor) TabID() string {
	return m.tabID
}

// CurrentSite returns the current site.
func (m *DOMMonitor) CurrentSite() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentSite
}

// CurrentURL returns the current URL.
func (m *DOMMonitor) CurrentURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentURL
}
