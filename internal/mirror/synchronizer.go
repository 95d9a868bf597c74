package mirror

// Scheduler runs fn on a later turn of the goroutine that owns the
// Synchronizer. It must not run fn synchronously.
type Scheduler func(fn func())

// StaleFunc is told about events that referenced ids the mirror does not
// know. Such events are ignored.
type StaleFunc func(op string, id NodeID)

// ViolationFunc is told about host contract violations, such as a second
// pseudo element of the same type. The offending event is ignored.
type ViolationFunc func(op string, id NodeID, reason string)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithScheduler enables coalesced dom-mutated notifications.
func WithScheduler(fn Scheduler) Option {
	return func(s *Synchronizer) { s.schedule = fn }
}

// WithStaleFunc installs a hook for ignored stale events.
func WithStaleFunc(fn StaleFunc) Option {
	return func(s *Synchronizer) { s.stale = fn }
}

// WithViolationFunc installs a hook for ignored contract violations.
func WithViolationFunc(fn ViolationFunc) Option {
	return func(s *Synchronizer) { s.violation = fn }
}

type observerEntry struct {
	id       int
	observer Observer
}

// Synchronizer applies host mutation events to the mirrored tree, in the
// order they are received, and notifies observers.
//
// A Synchronizer is not safe for concurrent use. All calls, including
// scheduled ticks, must happen on one goroutine.
type Synchronizer struct {
	nodes    map[NodeID]*Node
	document *Node

	observers      []observerEntry
	nextObserverID int

	schedule     Scheduler
	pending      map[NodeID]*Node
	pendingOrder []NodeID

	invalidated      map[NodeID]struct{}
	invalidatedOrder []NodeID

	stale     StaleFunc
	violation ViolationFunc
}

// NewSynchronizer creates an empty mirror with no document.
func NewSynchronizer(opts ...Option) *Synchronizer {
	s := &Synchronizer{
		nodes:       make(map[NodeID]*Node),
		pending:     make(map[NodeID]*Node),
		invalidated: make(map[NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Synchronizer) Subscribe(o Observer) func() {
	s.nextObserverID++
	id := s.nextObserverID
	s.observers = append(s.observers, observerEntry{id: id, observer: o})
	return func() {
		for i, e := range s.observers {
			if e.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Document returns the current document root, or nil.
func (s *Synchronizer) Document() *Node { return s.document }

// NodeForID returns the mirrored node with the given id, or nil.
func (s *Synchronizer) NodeForID(id NodeID) *Node { return s.nodes[id] }

// Len returns the number of nodes in the id index.
func (s *Synchronizer) Len() int { return len(s.nodes) }

// DocumentUpdated discards the whole mirror.
func (s *Synchronizer) DocumentUpdated() {
	s.SetDocument(nil)
}

// SetDocument rebuilds the mirror from a full snapshot. A nil payload
// leaves the mirror without a document.
func (s *Synchronizer) SetDocument(p *Payload) {
	s.nodes = make(map[NodeID]*Node)
	s.invalidated = make(map[NodeID]struct{})
	s.invalidatedOrder = nil
	s.document = nil
	if p != nil {
		s.document = s.build(nil, false, p, true)
	}
	s.emit(Event{Kind: EventDocumentUpdated, Node: s.document})
}

// SetChildren attaches a full ordered child list to a parent. A zero
// parent id registers payloads[0] as a detached root.
func (s *Synchronizer) SetChildren(parentID NodeID, payloads []*Payload) {
	if parentID == 0 {
		if len(payloads) > 0 {
			s.setDetachedRoot(payloads[0])
		}
		return
	}
	parent := s.lookup("setChildNodes", parentID)
	if parent == nil {
		return
	}
	// Frame owners keep their content document as the only child.
	if parent.contentDocument != nil {
		return
	}

	var released int
	for _, old := range parent.children {
		released += old.subtreeMarkerCount
		old.detach()
		s.unbind(old)
	}
	if released > 0 {
		s.adjustCounts(parent, -released)
	}

	parent.children = make([]*Node, 0, len(payloads))
	for _, p := range payloads {
		parent.children = append(parent.children, s.build(parent.ownerDocument, parent.isInShadowTree, p, false))
	}
	parent.renumber()

	if released > 0 {
		s.emitMarkersChanged(parent)
	}
	s.emit(Event{Kind: EventChildrenSet, Node: parent})
	s.scheduleMutation(parent)
}

func (s *Synchronizer) setDetachedRoot(p *Payload) {
	if s.nodes[p.NodeID] != nil {
		s.violate("setChildNodes", p.NodeID, "detached root id already mirrored")
		return
	}
	s.build(nil, false, p, p.NodeName == "#document")
}

// InsertChild creates a node from payload and splices it into the
// parent's children right after prevID, or at the front when prevID is
// zero or unknown.
func (s *Synchronizer) InsertChild(parentID, prevID NodeID, p *Payload) {
	parent := s.lookup("childNodeInserted", parentID)
	if parent == nil {
		return
	}
	if s.nodes[p.NodeID] != nil {
		s.violate("childNodeInserted", p.NodeID, "node id already mirrored")
		return
	}

	at := 0
	if prevID != 0 {
		for i, c := range parent.children {
			if c.id == prevID {
				at = i + 1
				break
			}
		}
	}

	node := s.build(parent.ownerDocument, parent.isInShadowTree, p, false)
	children := make([]*Node, 0, len(parent.children)+1)
	children = append(children, parent.children[:at]...)
	children = append(children, node)
	children = append(children, parent.children[at:]...)
	parent.children = children
	parent.renumber()

	s.emit(Event{Kind: EventNodeInserted, Node: node})
	s.scheduleMutation(node)
}

// RemoveChild detaches a node from whichever parent collection owns it
// and drops its whole subtree from the index.
func (s *Synchronizer) RemoveChild(parentID, nodeID NodeID) {
	s.removeOwned("childNodeRemoved", parentID, nodeID)
}

// AttributeModified sets an attribute, keeping the position of existing
// names and appending new ones.
func (s *Synchronizer) AttributeModified(id NodeID, name, value string) {
	node := s.lookup("attributeModified", id)
	if node == nil {
		return
	}
	node.setAttribute(name, value)
	s.emit(Event{Kind: EventAttrModified, Node: node, Name: name})
	s.scheduleMutation(node)
}

// AttributeRemoved removes an attribute.
func (s *Synchronizer) AttributeRemoved(id NodeID, name string) {
	node := s.lookup("attributeRemoved", id)
	if node == nil {
		return
	}
	node.removeAttribute(name)
	s.emit(Event{Kind: EventAttrRemoved, Node: node, Name: name})
	s.scheduleMutation(node)
}

// SetAttributes replaces the full attribute list of a node, typically
// after reloading it from the host, and reports whether it changed.
func (s *Synchronizer) SetAttributes(id NodeID, flat []string) bool {
	node := s.lookup("getAttributes", id)
	if node == nil {
		return false
	}
	if !node.setAttributes(flat) {
		return false
	}
	s.emit(Event{Kind: EventAttrModified, Node: node, Name: "style"})
	s.scheduleMutation(node)
	return true
}

// InlineStyleInvalidated records nodes whose attributes must be reloaded.
func (s *Synchronizer) InlineStyleInvalidated(ids []NodeID) {
	for _, id := range ids {
		if _, ok := s.invalidated[id]; ok {
			continue
		}
		s.invalidated[id] = struct{}{}
		s.invalidatedOrder = append(s.invalidatedOrder, id)
	}
}

// TakeInvalidatedAttributes drains the recorded ids that still resolve.
func (s *Synchronizer) TakeInvalidatedAttributes() []NodeID {
	var out []NodeID
	for _, id := range s.invalidatedOrder {
		if s.nodes[id] != nil {
			out = append(out, id)
		}
	}
	s.invalidated = make(map[NodeID]struct{})
	s.invalidatedOrder = nil
	return out
}

// CharacterDataModified replaces the value of a text-like node.
func (s *Synchronizer) CharacterDataModified(id NodeID, value string) {
	node := s.lookup("characterDataModified", id)
	if node == nil {
		return
	}
	node.nodeValue = value
	s.emit(Event{Kind: EventCharacterDataModified, Node: node})
	s.scheduleMutation(node)
}

// ChildNodeCountUpdated updates the advertised child count without
// materializing children.
func (s *Synchronizer) ChildNodeCountUpdated(id NodeID, count int) {
	node := s.lookup("childNodeCountUpdated", id)
	if node == nil {
		return
	}
	node.childNodeCount = count
	s.emit(Event{Kind: EventChildCountUpdated, Node: node})
	s.scheduleMutation(node)
}

// ShadowRootPushed adds a shadow root at the front of the host's list.
func (s *Synchronizer) ShadowRootPushed(hostID NodeID, p *Payload) {
	host := s.lookup("shadowRootPushed", hostID)
	if host == nil {
		return
	}
	if s.nodes[p.NodeID] != nil {
		s.violate("shadowRootPushed", p.NodeID, "node id already mirrored")
		return
	}
	root := s.build(host.ownerDocument, true, p, false)
	root.parent = host
	host.shadowRoots = append([]*Node{root}, host.shadowRoots...)

	s.emit(Event{Kind: EventNodeInserted, Node: root})
	s.scheduleMutation(root)
}

// ShadowRootPopped removes a shadow root from its host.
func (s *Synchronizer) ShadowRootPopped(hostID, rootID NodeID) {
	s.removeOwned("shadowRootPopped", hostID, rootID)
}

// PseudoElementAdded attaches a pseudo element. A parent holds at most one
// pseudo element per type.
func (s *Synchronizer) PseudoElementAdded(parentID NodeID, p *Payload) {
	parent := s.lookup("pseudoElementAdded", parentID)
	if parent == nil {
		return
	}
	if s.nodes[p.NodeID] != nil {
		s.violate("pseudoElementAdded", p.NodeID, "node id already mirrored")
		return
	}
	if parent.pseudoElements[p.PseudoType] != nil {
		s.violate("pseudoElementAdded", parentID, "duplicate pseudo type "+string(p.PseudoType))
		return
	}
	node := s.build(parent.ownerDocument, parent.isInShadowTree, p, false)
	node.parent = parent
	if parent.pseudoElements == nil {
		parent.pseudoElements = make(map[PseudoType]*Node)
	}
	parent.pseudoElements[node.pseudoType] = node

	s.emit(Event{Kind: EventNodeInserted, Node: node})
	s.scheduleMutation(node)
}

// PseudoElementRemoved detaches a pseudo element from its parent.
func (s *Synchronizer) PseudoElementRemoved(parentID, pseudoID NodeID) {
	s.removeOwned("pseudoElementRemoved", parentID, pseudoID)
}

// DistributedNodesUpdated replaces an insertion point's distributed nodes.
func (s *Synchronizer) DistributedNodesUpdated(insertionPointID NodeID, nodes []Shortcut) {
	ip := s.lookup("distributedNodesUpdated", insertionPointID)
	if ip == nil {
		return
	}
	ip.distributedNodes = append([]Shortcut(nil), nodes...)
	s.emit(Event{Kind: EventDistributedNodesChanged, Node: ip})
	s.scheduleMutation(ip)
}

// InspectNodeRequested tells observers the host asked to inspect a node.
func (s *Synchronizer) InspectNodeRequested(backendID BackendNodeID) {
	s.emit(Event{Kind: EventNodeInspected, Deferred: &DeferredNode{BackendID: backendID}})
}

func (s *Synchronizer) removeOwned(op string, parentID, nodeID NodeID) {
	parent := s.lookup(op, parentID)
	if parent == nil {
		return
	}
	node := s.lookup(op, nodeID)
	if node == nil {
		return
	}
	if !s.detachFrom(parent, node) {
		s.violate(op, nodeID, "node is not owned by the given parent")
		return
	}
	s.unbind(node)
	s.emit(Event{Kind: EventNodeRemoved, Node: node, Parent: parent})
	s.scheduleMutation(parent)
}

// detachFrom removes node from the parent collection that owns it and
// releases its marker count from the ancestors.
func (s *Synchronizer) detachFrom(parent, node *Node) bool {
	switch {
	case node.pseudoType != "" && parent.pseudoElements[node.pseudoType] == node:
		delete(parent.pseudoElements, node.pseudoType)
	case removeFrom(&parent.shadowRoots, node):
	case removeFrom(&parent.children, node):
		parent.renumber()
	default:
		return false
	}
	node.detach()

	if released := node.subtreeMarkerCount; released > 0 {
		s.adjustCounts(parent, -released)
		s.emitMarkersChanged(parent)
	}
	return true
}

func removeFrom(list *[]*Node, node *Node) bool {
	for i, n := range *list {
		if n == node {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// build creates a node and its owned subtree from a payload and registers
// every created node in the index.
func (s *Synchronizer) build(doc *Node, inShadow bool, p *Payload, asDocument bool) *Node {
	n := &Node{
		id:             p.NodeID,
		backendID:      p.BackendNodeID,
		nodeType:       p.NodeType,
		nodeName:       p.NodeName,
		localName:      p.LocalName,
		nodeValue:      p.NodeValue,
		childNodeCount: p.ChildNodeCount,
		index:          -1,
		isInShadowTree: inShadow,
		pseudoType:     p.PseudoType,
		shadowRootType: p.ShadowRootType,
		frameID:        p.FrameID,
		xmlVersion:     p.XMLVersion,
	}
	if asDocument || p.NodeType == DocumentNode {
		n.document = &DocumentInfo{URL: p.DocumentURL, BaseURL: p.BaseURL}
		doc = n
	}
	n.ownerDocument = doc
	n.setAttributes(p.Attributes)
	s.nodes[n.id] = n

	for _, rp := range p.ShadowRoots {
		root := s.build(doc, true, rp, false)
		root.parent = n
		n.shadowRoots = append(n.shadowRoots, root)
	}
	if p.TemplateContent != nil {
		n.templateContent = s.build(doc, true, p.TemplateContent, false)
		n.templateContent.parent = n
	}
	if p.ImportedDocument != nil {
		n.importedDocument = s.build(doc, true, p.ImportedDocument, false)
		n.importedDocument.parent = n
	}
	if len(p.DistributedNodes) > 0 {
		n.distributedNodes = append([]Shortcut(nil), p.DistributedNodes...)
	}

	switch {
	case p.ContentDocument != nil:
		n.contentDocument = s.build(nil, false, p.ContentDocument, true)
		n.children = []*Node{n.contentDocument}
		n.renumber()
	case p.Children != nil:
		n.children = make([]*Node, 0, len(p.Children))
		for _, cp := range p.Children {
			n.children = append(n.children, s.build(doc, inShadow, cp, false))
		}
		n.renumber()
	}

	for _, pp := range p.PseudoElements {
		if n.pseudoElements[pp.PseudoType] != nil {
			s.violate("setPseudoElements", n.id, "duplicate pseudo type "+string(pp.PseudoType))
			continue
		}
		pe := s.build(doc, inShadow, pp, false)
		pe.parent = n
		if n.pseudoElements == nil {
			n.pseudoElements = make(map[PseudoType]*Node)
		}
		n.pseudoElements[pe.pseudoType] = pe
	}

	switch n.nodeType {
	case ElementNode:
		// The first HTML and BODY built for a document win.
		if doc != nil && doc.document != nil {
			if doc.document.DocumentElement == nil && n.nodeName == "HTML" {
				doc.document.DocumentElement = n
			}
			if doc.document.Body == nil && n.nodeName == "BODY" {
				doc.document.Body = n
			}
		}
	case DocumentTypeNode:
		n.doctype = &doctypeInfo{publicID: p.PublicID, systemID: p.SystemID, internalSubset: p.InternalSubset}
	case AttributeNode:
		n.attrName = p.Name
		n.attrValue = p.Value
	}
	return n
}

// unbind drops node and everything it owns from the index.
func (s *Synchronizer) unbind(n *Node) {
	if s.nodes[n.id] == n {
		delete(s.nodes, n.id)
	}
	for _, c := range n.children {
		s.unbind(c)
	}
	for _, r := range n.shadowRoots {
		s.unbind(r)
	}
	for _, pe := range n.pseudoElements {
		s.unbind(pe)
	}
	if n.templateContent != nil {
		s.unbind(n.templateContent)
	}
	if n.importedDocument != nil {
		s.unbind(n.importedDocument)
	}
}

func (s *Synchronizer) lookup(op string, id NodeID) *Node {
	n := s.nodes[id]
	if n == nil && s.stale != nil {
		s.stale(op, id)
	}
	return n
}

func (s *Synchronizer) violate(op string, id NodeID, reason string) {
	if s.violation != nil {
		s.violation(op, id, reason)
	}
}

func (s *Synchronizer) emit(ev Event) {
	if len(s.observers) == 0 {
		return
	}
	// Observers may unsubscribe while being notified.
	observers := append([]observerEntry(nil), s.observers...)
	for _, e := range observers {
		e.observer.HandleEvent(ev)
	}
}

// scheduleMutation queues a coalesced dom-mutated signal for node.
func (s *Synchronizer) scheduleMutation(n *Node) {
	if s.schedule == nil || n == nil {
		return
	}
	if _, queued := s.pending[n.id]; queued {
		s.pending[n.id] = n
		return
	}
	s.pending[n.id] = n
	s.pendingOrder = append(s.pendingOrder, n.id)
	if len(s.pendingOrder) == 1 {
		s.schedule(s.flushMutations)
	}
}

// flushMutations delivers queued dom-mutated signals for nodes that are
// still mirrored.
func (s *Synchronizer) flushMutations() {
	order, pending := s.pendingOrder, s.pending
	s.pendingOrder = nil
	s.pending = make(map[NodeID]*Node)
	for _, id := range order {
		n := pending[id]
		if s.nodes[id] != n {
			continue
		}
		s.emit(Event{Kind: EventDOMMutated, Node: n})
	}
}
