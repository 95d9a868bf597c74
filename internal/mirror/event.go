package mirror

// EventKind tags a mirror notification.
type EventKind string

// Notification kinds delivered to observers.
const (
	EventDocumentUpdated         EventKind = "document-updated"
	EventNodeInserted            EventKind = "node-inserted"
	EventChildrenSet             EventKind = "children-set"
	EventNodeRemoved             EventKind = "node-removed"
	EventAttrModified            EventKind = "attr-modified"
	EventAttrRemoved             EventKind = "attr-removed"
	EventCharacterDataModified   EventKind = "character-data-modified"
	EventChildCountUpdated       EventKind = "child-count-updated"
	EventMarkersChanged          EventKind = "markers-changed"
	EventDistributedNodesChanged EventKind = "distributed-nodes-changed"
	EventNodeInspected           EventKind = "node-inspected"

	// EventDOMMutated is the coalesced signal delivered on the tick after
	// one or more mutations touched a node.
	EventDOMMutated EventKind = "dom-mutated"
)

// DeferredNode is a reference to a host node that has not necessarily been
// pushed to the mirror yet.
type DeferredNode struct {
	BackendID BackendNodeID
}

// Event is a single notification about a change in the mirror.
type Event struct {
	Kind EventKind

	// Node is the affected node. For document-updated it is the new
	// document root, or nil when the document was discarded.
	Node *Node

	// Parent is set for node-removed.
	Parent *Node

	// Name is the attribute name for attr-modified and attr-removed.
	Name string

	// Deferred is set for node-inspected.
	Deferred *DeferredNode
}

// Observer receives mirror notifications. HandleEvent is called
// synchronously on the goroutine that applies mutations and must not
// mutate the mirror.
type Observer interface {
	HandleEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// HandleEvent calls f(ev).
func (f ObserverFunc) HandleEvent(ev Event) { f(ev) }
