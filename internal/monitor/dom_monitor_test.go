package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/overlay"
	"github.com/chromedp/cdproto/page"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajsharma/dom_tail/internal/config"
	"github.com/ajsharma/dom_tail/internal/events"
	"github.com/ajsharma/dom_tail/internal/logger"
	"github.com/ajsharma/dom_tail/internal/metrics"
	"github.com/ajsharma/dom_tail/internal/mirror"
	"github.com/ajsharma/dom_tail/internal/redact"
)

const (
	testSite = "example.com"
	testTab  = "tab-1"
)

func elem(id mirror.NodeID, name string, children ...*mirror.Payload) *mirror.Payload {
	return &mirror.Payload{
		NodeID:         id,
		BackendNodeID:  mirror.BackendNodeID(id + 1000),
		NodeType:       mirror.ElementNode,
		NodeName:       name,
		LocalName:      strings.ToLower(name),
		ChildNodeCount: len(children),
		Children:       children,
	}
}

// testDocument builds
//
//	#document(1)
//	  HTML(2)
//	    HEAD(3)
//	    BODY(4)
//	      DIV(5) "hello"(6)
//	      P(7)
//	      INPUT(8) type=password
func testDocument() *mirror.Payload {
	input := elem(8, "INPUT")
	input.Attributes = []string{"type", "password", "value", ""}
	return &mirror.Payload{
		NodeID:      1,
		NodeType:    mirror.DocumentNode,
		NodeName:    "#document",
		DocumentURL: "https://example.com/?token=abc",
		Children: []*mirror.Payload{
			elem(2, "HTML",
				elem(3, "HEAD"),
				elem(4, "BODY",
					elem(5, "DIV", &mirror.Payload{NodeID: 6, NodeType: mirror.TextNode, NodeName: "#text", NodeValue: "hello"}),
					elem(7, "P"),
					input,
				),
			),
		},
	}
}

// fakeHost answers host requests from fixed tables. Gates, when set, hold
// the matching request until closed or until the request context ends.
type fakeHost struct {
	mu         sync.Mutex
	docs       []func() *mirror.Payload
	docCalls   int
	childCalls int
	docGate    chan struct{}
	childGate  chan struct{}
	attrs      map[mirror.NodeID][]string
	html       map[mirror.NodeID]string
	pushed     map[mirror.BackendNodeID]mirror.NodeID
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		docs:   []func() *mirror.Payload{testDocument},
		attrs:  make(map[mirror.NodeID][]string),
		html:   make(map[mirror.NodeID]string),
		pushed: make(map[mirror.BackendNodeID]mirror.NodeID),
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *fakeHost) GetDocument(ctx context.Context, _ int, _ bool) (*mirror.Payload, error) {
	h.mu.Lock()
	gate := h.docGate
	build := h.docs[min(h.docCalls, len(h.docs)-1)]
	h.docCalls++
	h.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return build(), nil
}

func (h *fakeHost) RequestChildNodes(ctx context.Context, _ mirror.NodeID, _ int, _ bool) error {
	h.mu.Lock()
	gate := h.childGate
	h.childCalls++
	h.mu.Unlock()
	return wait(ctx, gate)
}

func (h *fakeHost) GetAttributes(_ context.Context, id mirror.NodeID) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	attrs, ok := h.attrs[id]
	if !ok {
		return nil, errors.New("no such node")
	}
	return attrs, nil
}

func (h *fakeHost) GetOuterHTML(_ context.Context, id mirror.NodeID) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.html[id], nil
}

func (h *fakeHost) ResolveNode(_ context.Context, id mirror.NodeID, group string) (string, error) {
	return group + ":" + strconv.FormatInt(int64(id), 10), nil
}

func (h *fakeHost) PushNodesByBackendIDs(_ context.Context, ids []mirror.BackendNodeID) ([]mirror.NodeID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]mirror.NodeID, len(ids))
	for i, id := range ids {
		out[i] = h.pushed[id]
	}
	return out, nil
}

func (h *fakeHost) calls() (docs, children int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.docCalls, h.childCalls
}

type testMonitor struct {
	*DOMMonitor
	dir     string
	metrics *metrics.Metrics
}

func newTestMonitor(t *testing.T, host mirror.Host, configure ...func(*config.Config)) *testMonitor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	for _, fn := range configure {
		fn(cfg)
	}

	mt := metrics.New()
	opts := []Option{WithMetrics(mt)}
	if host != nil {
		opts = append(opts, WithHost(host))
	}
	m := NewDOMMonitor(context.Background(),
		"target-1", testTab, testSite, "Example", "https://example.com/", "session-1",
		logger.NewFileManager(cfg.OutputDir), cfg, opts...)
	t.Cleanup(m.Stop)
	return &testMonitor{DOMMonitor: m, dir: cfg.OutputDir, metrics: mt}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (m *testMonitor) loadDocument(t *testing.T) *mirror.Node {
	t.Helper()
	doc, err := m.RequestDocument().Await(testContext(t))
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

// sync waits until everything queued before it has been applied.
func (m *testMonitor) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Do(testContext(t), func(*mirror.Synchronizer) {}))
}

func (m *testMonitor) readLog(t *testing.T, site string) []events.LogEvent {
	t.Helper()
	data, err := os.ReadFile(logger.GetLogPath(m.dir, site, testTab))
	require.NoError(t, err)

	var out []events.LogEvent
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev events.LogEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		out = append(out, ev)
	}
	return out
}

func ofType(evs []events.LogEvent, eventType string) []events.LogEvent {
	var out []events.LogEvent
	for _, ev := range evs {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestRequestDocument(t *testing.T) {
	host := newFakeHost()
	m := newTestMonitor(t, host)

	doc := m.loadDocument(t)
	assert.Equal(t, mirror.NodeID(1), doc.ID())
	assert.Equal(t, "https://example.com/?token=abc", doc.Document().URL)

	again := m.loadDocument(t)
	assert.Same(t, doc, again)

	docs, _ := host.calls()
	assert.Equal(t, 1, docs)
}

func TestConcurrentDocumentRequestsShareFetch(t *testing.T) {
	host := newFakeHost()
	host.docGate = make(chan struct{})
	m := newTestMonitor(t, host)

	first := m.RequestDocument()
	second := m.RequestDocument()
	m.sync(t)
	close(host.docGate)

	ctx := testContext(t)
	a, err := first.Await(ctx)
	require.NoError(t, err)
	b, err := second.Await(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b)

	docs, _ := host.calls()
	assert.Equal(t, 1, docs)
}

func TestApplyDOMEvents(t *testing.T) {
	m := newTestMonitor(t, newFakeHost())
	m.loadDocument(t)

	m.dispatch(&dom.EventChildNodeInserted{
		ParentNodeID:   4,
		PreviousNodeID: 5,
		Node:           &cdp.Node{NodeID: 9, NodeType: cdp.NodeTypeElement, NodeName: "SPAN", LocalName: "span"},
	})
	m.dispatch(&dom.EventAttributeModified{NodeID: 5, Name: "class", Value: "box"})
	m.dispatch(&dom.EventCharacterDataModified{NodeID: 6, CharacterData: "bye"})
	m.dispatch(&dom.EventChildNodeCountUpdated{NodeID: 7, ChildNodeCount: 3})
	m.dispatch(&dom.EventShadowRootPushed{
		HostID: 5,
		Root:   &cdp.Node{NodeID: 20, NodeType: cdp.NodeTypeDocumentFragment, NodeName: "#document-fragment", ShadowRootType: cdp.ShadowRootTypeOpen},
	})
	m.dispatch(&dom.EventPseudoElementAdded{
		ParentID:      5,
		PseudoElement: &cdp.Node{NodeID: 30, NodeType: cdp.NodeTypeElement, NodeName: "::before", PseudoType: cdp.PseudoTypeBefore},
	})
	m.dispatch(&dom.EventDistributedNodesUpdated{
		InsertionPointID: 7,
		DistributedNodes: []*cdp.BackendNode{{NodeType: cdp.NodeTypeElement, NodeName: "DIV", BackendNodeID: 1005}},
	})
	m.dispatch(&dom.EventChildNodeRemoved{ParentNodeID: 4, NodeID: 8})
	m.dispatch(&dom.EventSetChildNodes{
		ParentID: 7,
		Nodes:    []*cdp.Node{{NodeID: 40, NodeType: cdp.NodeTypeText, NodeName: "#text", NodeValue: "para"}},
	})

	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		body := s.NodeForID(4)
		var ids []mirror.NodeID
		for _, c := range body.Children() {
			ids = append(ids, c.ID())
		}
		assert.Equal(t, []mirror.NodeID{5, 9, 7}, ids)
		assert.Nil(t, s.NodeForID(8))

		div := s.NodeForID(5)
		class, _ := div.Attribute("class")
		assert.Equal(t, "box", class)
		assert.Equal(t, "bye", s.NodeForID(6).NodeValue())
		require.Len(t, div.ShadowRoots(), 1)
		assert.True(t, div.ShadowRoots()[0].IsInShadowTree())
		assert.Equal(t, mirror.NodeID(30), div.BeforePseudoElement().ID())

		p := s.NodeForID(7)
		require.Len(t, p.Children(), 1)
		assert.Equal(t, "para", p.Children()[0].NodeValue())
		require.Len(t, p.DistributedNodes(), 1)
		assert.Equal(t, mirror.BackendNodeID(1005), p.DistributedNodes()[0].BackendID)
	}))

	m.dispatch(&dom.EventShadowRootPopped{HostID: 5, RootID: 20})
	m.dispatch(&dom.EventPseudoElementRemoved{ParentID: 5, PseudoElementID: 30})
	m.dispatch(&dom.EventAttributeRemoved{NodeID: 5, Name: "class"})

	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		div := s.NodeForID(5)
		assert.Empty(t, div.ShadowRoots())
		assert.Nil(t, div.BeforePseudoElement())
		assert.False(t, div.HasAttributes())
		assert.Nil(t, s.NodeForID(20))
		assert.Nil(t, s.NodeForID(30))
	}))
}

func TestEventsHeldWhileDocumentIsFetched(t *testing.T) {
	host := newFakeHost()
	host.docGate = make(chan struct{})
	m := newTestMonitor(t, host)

	doc := m.RequestDocument()
	m.dispatch(&dom.EventChildNodeInserted{
		ParentNodeID: 4,
		Node:         &cdp.Node{NodeID: 9, NodeType: cdp.NodeTypeElement, NodeName: "SPAN"},
	})
	m.sync(t)
	close(host.docGate)

	_, err := doc.Await(testContext(t))
	require.NoError(t, err)
	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		span := s.NodeForID(9)
		require.NotNil(t, span)
		assert.Equal(t, mirror.NodeID(4), span.Parent().ID())
		assert.Equal(t, 0, span.Index())
	}))
}

func TestDocumentUpdatedRefetches(t *testing.T) {
	host := newFakeHost()
	host.docs = append(host.docs, func() *mirror.Payload {
		return &mirror.Payload{
			NodeID:   100,
			NodeType: mirror.DocumentNode,
			NodeName: "#document",
			Children: []*mirror.Payload{elem(101, "HTML")},
		}
	})
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	m.dispatch(&dom.EventDocumentUpdated{})
	doc := m.loadDocument(t)

	assert.Equal(t, mirror.NodeID(100), doc.ID())
	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		assert.Nil(t, s.NodeForID(5))
		assert.Equal(t, 2, s.Len())
	}))
	docs, _ := host.calls()
	assert.Equal(t, 2, docs)
}

func TestInlineStyleReload(t *testing.T) {
	host := newFakeHost()
	host.attrs[5] = []string{"style", "color: red"}
	m := newTestMonitor(t, host, func(c *config.Config) {
		c.StyleReloadDelay = time.Millisecond
	})
	m.loadDocument(t)

	m.dispatch(&dom.EventInlineStyleInvalidated{NodeIDs: []cdp.NodeID{5, 99}})

	require.Eventually(t, func() bool {
		var style string
		_ = m.Do(testContext(t), func(s *mirror.Synchronizer) {
			style, _ = s.NodeForID(5).Attribute("style")
		})
		return style == "color: red"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReloadAttributesForRemovedNode(t *testing.T) {
	host := newFakeHost()
	host.attrs[7] = []string{"id", "late"}
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	var f *mirror.Future[bool]
	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		f = m.reloadAttributes(7)
		s.RemoveChild(4, 7)
	}))

	changed, err := f.Await(testContext(t))
	assert.ErrorIs(t, err, mirror.ErrNodeRemoved)
	assert.False(t, changed)
}

func TestRequestChildren(t *testing.T) {
	host := newFakeHost()
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	children, err := m.RequestChildren(4, 1).Await(testContext(t))
	require.NoError(t, err)
	assert.Len(t, children, 3)
	_, childCalls := host.calls()
	assert.Equal(t, 0, childCalls)

	_, err = m.RequestChildren(999, 1).Await(testContext(t))
	assert.ErrorIs(t, err, mirror.ErrUnknownNode)
}

func TestRequestChildrenLateResponseForRemovedNode(t *testing.T) {
	host := newFakeHost()
	host.childGate = make(chan struct{})
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	f := m.RequestChildren(7, 1)
	m.dispatch(&dom.EventChildNodeRemoved{ParentNodeID: 4, NodeID: 7})
	m.sync(t)
	close(host.childGate)

	_, err := f.Await(testContext(t))
	assert.ErrorIs(t, err, mirror.ErrNodeRemoved)
	_, childCalls := host.calls()
	assert.Equal(t, 1, childCalls)
}

func TestRequestChildrenFetchesMissing(t *testing.T) {
	host := newFakeHost()
	host.childGate = make(chan struct{})
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	f := m.RequestChildren(7, 1)
	m.sync(t)
	// The browser reports the children before answering the request.
	m.dispatch(&dom.EventSetChildNodes{
		ParentID: 7,
		Nodes:    []*cdp.Node{{NodeID: 40, NodeType: cdp.NodeTypeText, NodeName: "#text", NodeValue: "x"}},
	})
	m.sync(t)
	close(host.childGate)

	children, err := f.Await(testContext(t))
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, mirror.NodeID(40), children[0].ID())
}

func TestOuterHTMLAndResolveNode(t *testing.T) {
	host := newFakeHost()
	host.html[5] = "<div>hello</div>"
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	html, err := m.OuterHTML(5).Await(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "<div>hello</div>", html)

	objectID, err := m.ResolveNode(5).Await(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, ObjectGroup+":5", objectID)

	_, err = m.OuterHTML(999).Await(testContext(t))
	assert.ErrorIs(t, err, mirror.ErrUnknownNode)
}

func TestResolveDeferred(t *testing.T) {
	host := newFakeHost()
	host.pushed[1007] = 7
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	node, err := m.ResolveDeferred(mirror.DeferredNode{BackendID: 1007}).Await(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, mirror.NodeID(7), node.ID())

	_, err = m.ResolveDeferred(mirror.DeferredNode{BackendID: 4242}).Await(testContext(t))
	assert.ErrorIs(t, err, mirror.ErrUnknownNode)
}

func TestInspectRequestMovesMarker(t *testing.T) {
	host := newFakeHost()
	host.pushed[1005] = 5
	host.pushed[1007] = 7
	m := newTestMonitor(t, host)
	m.loadDocument(t)

	marked := func(id mirror.NodeID) func() bool {
		return func() bool {
			var ok bool
			_ = m.Do(testContext(t), func(s *mirror.Synchronizer) {
				ok = s.Marker(s.NodeForID(id), InspectedMarker) != nil
			})
			return ok
		}
	}

	m.dispatch(&overlay.EventInspectNodeRequested{BackendNodeID: 1005})
	require.Eventually(t, marked(5), 2*time.Second, 5*time.Millisecond)

	m.dispatch(&overlay.EventInspectNodeRequested{BackendNodeID: 1007})
	require.Eventually(t, marked(7), 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		assert.Nil(t, s.Marker(s.NodeForID(5), InspectedMarker))
		assert.Equal(t, 1, s.SubtreeMarkerCount(s.Document()))
	}))
}

func TestJournal(t *testing.T) {
	m := newTestMonitor(t, newFakeHost())
	m.loadDocument(t)

	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		s.AttributeModified(8, "value", "hunter2")
		s.AttributeModified(8, "value", "hunter3")
		s.CharacterDataModified(6, "bye")
	}))
	m.Stop()

	evs := m.readLog(t, testSite)

	docs := ofType(evs, events.EventDOMDocumentUpdated)
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0].Data["url"], "abc")
	assert.Equal(t, 8.0, docs[0].Data["node_count"])

	attrs := ofType(evs, events.EventDOMAttributeModified)
	require.Len(t, attrs, 2)
	for _, ev := range attrs {
		assert.Equal(t, redact.RedactedValue, ev.Data["value"])
		assert.Equal(t, "input", ev.Data["node_name"])
		assert.Equal(t, "0,HTML,1,BODY,2,INPUT", ev.Data["path"])
	}

	text := ofType(evs, events.EventDOMCharacterDataModified)
	require.Len(t, text, 1)
	assert.Equal(t, "bye", text[0].Data["value"])

	// Two mutations of the same node coalesce into one signal.
	mutated := ofType(evs, events.EventDOMMutated)
	require.Len(t, mutated, 2)
	assert.Equal(t, 8.0, mutated[0].Data["node_id"])
	assert.Equal(t, 6.0, mutated[1].Data["node_id"])

	closed := ofType(evs, events.EventMetaTabClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, closed[0], evs[len(evs)-1])
}

func TestJournalFilters(t *testing.T) {
	m := newTestMonitor(t, newFakeHost(), func(c *config.Config) {
		c.EnableAttributes = false
		c.EnableStructure = false
	})
	m.loadDocument(t)

	m.dispatch(&dom.EventAttributeModified{NodeID: 5, Name: "class", Value: "box"})
	m.dispatch(&dom.EventCharacterDataModified{NodeID: 6, CharacterData: "bye"})
	m.sync(t)
	m.Stop()

	evs := m.readLog(t, testSite)
	assert.Empty(t, ofType(evs, events.EventDOMAttributeModified))
	assert.Empty(t, ofType(evs, events.EventDOMDocumentUpdated))
	assert.Empty(t, ofType(evs, events.EventDOMMutated))
	assert.Len(t, ofType(evs, events.EventDOMCharacterDataModified), 1)
}

func TestCoalescingDisabled(t *testing.T) {
	m := newTestMonitor(t, newFakeHost(), func(c *config.Config) {
		c.MutationCoalescing = false
	})
	m.loadDocument(t)

	require.NoError(t, m.Do(testContext(t), func(s *mirror.Synchronizer) {
		s.AttributeModified(5, "class", "a")
	}))
	m.Stop()

	assert.Empty(t, ofType(m.readLog(t, testSite), events.EventDOMMutated))
}

func TestStaleAndViolationEvents(t *testing.T) {
	m := newTestMonitor(t, newFakeHost())
	m.loadDocument(t)

	m.dispatch(&dom.EventAttributeModified{NodeID: 999, Name: "class", Value: "x"})
	m.dispatch(&dom.EventChildNodeInserted{
		ParentNodeID: 4,
		Node:         &cdp.Node{NodeID: 5, NodeType: cdp.NodeTypeElement, NodeName: "DIV"},
	})
	m.sync(t)
	m.Stop()

	evs := m.readLog(t, testSite)
	stale := ofType(evs, events.EventMirrorStale)
	require.Len(t, stale, 1)
	assert.Equal(t, "attributeModified", stale[0].Data["op"])
	assert.Equal(t, 999.0, stale[0].Data["node_id"])

	violations := ofType(evs, events.EventMirrorContractViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, "childNodeInserted", violations[0].Data["op"])

	count, err := testutil.GatherAndCount(m.metrics.Registry(), "dom_tail_stale_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFrameNavigated(t *testing.T) {
	m := newTestMonitor(t, newFakeHost())

	m.dispatch(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "child", ParentID: "main", URL: "https://ads.example.net/"}})
	m.dispatch(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", URL: "https://example.com/next?token=abc"}})
	m.sync(t)

	assert.Equal(t, "https://example.com/next?token=abc", m.CurrentURL())
	m.Stop()

	navs := ofType(m.readLog(t, testSite), events.EventPageNavigate)
	require.Len(t, navs, 1)
	assert.Equal(t, "main", navs[0].Data["frame_id"])
	assert.NotContains(t, navs[0].Data["url"], "abc")
}

func TestHandleSiteChange(t *testing.T) {
	m := newTestMonitor(t, newFakeHost())

	assert.False(t, m.HandleSiteChange(testSite, "https://example.com/other"))
	assert.Equal(t, "https://example.com/other", m.CurrentURL())

	assert.True(t, m.HandleSiteChange("other.org", "https://other.org/"))
	assert.Equal(t, "other.org", m.CurrentSite())
	m.Stop()

	old := m.readLog(t, testSite)
	require.Len(t, ofType(old, events.EventMetaSiteChanged), 1)

	entered := m.readLog(t, "other.org")
	require.Len(t, ofType(entered, events.EventMetaSiteEntered), 1)
	require.Len(t, ofType(entered, events.EventMetaTabClosed), 1)
}

func TestStopResolvesPendingRequests(t *testing.T) {
	host := newFakeHost()
	host.docGate = make(chan struct{})
	m := newTestMonitor(t, host)

	f := m.RequestDocument()
	m.sync(t)
	m.Stop()

	_, err := f.Await(testContext(t))
	assert.ErrorIs(t, err, ErrStopped)

	_, err = m.RequestDocument().Await(testContext(t))
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, m.Do(testContext(t), func(*mirror.Synchronizer) {}), ErrStopped)

	// Stop is idempotent.
	m.Stop()
}

func TestRequestsWithoutHost(t *testing.T) {
	m := newTestMonitor(t, nil)

	_, err := m.RequestDocument().Await(testContext(t))
	assert.ErrorIs(t, err, ErrNoHost)
}
