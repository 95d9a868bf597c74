package mirror

import (
	"maps"
	"slices"
)

// SetMarker attaches a named marker to a node. A nil value removes it.
//
// A node with at least one marker contributes one to its own subtree
// marker count and to that of every ancestor.
func (s *Synchronizer) SetMarker(n *Node, name string, value any) {
	if n == nil {
		return
	}
	if value == nil {
		if _, ok := n.markers[name]; !ok {
			return
		}
		delete(n.markers, name)
		if len(n.markers) == 0 {
			s.adjustCounts(n, -1)
		}
		s.emitMarkersChanged(n)
		return
	}

	had := len(n.markers) > 0
	if n.markers == nil {
		n.markers = make(map[string]any)
	}
	n.markers[name] = value
	if !had {
		s.adjustCounts(n, 1)
	}
	s.emitMarkersChanged(n)
}

// Marker returns the value of a named marker, or nil.
func (s *Synchronizer) Marker(n *Node, name string) any {
	if n == nil {
		return nil
	}
	return n.markers[name]
}

// HasSubtreeMarkers reports whether n or any descendant carries a marker.
func (s *Synchronizer) HasSubtreeMarkers(n *Node) bool {
	return n != nil && n.subtreeMarkerCount > 0
}

// SubtreeMarkerCount returns the number of marked nodes in n's subtree,
// n included.
func (s *Synchronizer) SubtreeMarkerCount(n *Node) int {
	if n == nil {
		return 0
	}
	return n.subtreeMarkerCount
}

// TraverseMarkers calls visit for every (node, marker name) pair in the
// subtree rooted at root, or in the whole document when root is nil.
// Subtrees without markers are not entered.
func (s *Synchronizer) TraverseMarkers(root *Node, visit func(n *Node, name string)) {
	if root == nil {
		root = s.document
	}
	walkMarked(root, func(n *Node) {
		for _, name := range slices.Sorted(maps.Keys(n.markers)) {
			visit(n, name)
		}
	})
}

// walkMarked calls enter for each node whose subtree holds markers.
func walkMarked(n *Node, enter func(*Node)) {
	if n == nil || n.subtreeMarkerCount == 0 {
		return
	}
	enter(n)
	for _, r := range n.shadowRoots {
		walkMarked(r, enter)
	}
	if n.templateContent != nil {
		walkMarked(n.templateContent, enter)
	}
	if n.importedDocument != nil {
		walkMarked(n.importedDocument, enter)
	}
	for _, c := range n.children {
		walkMarked(c, enter)
	}
	for _, t := range slices.Sorted(maps.Keys(n.pseudoElements)) {
		walkMarked(n.pseudoElements[t], enter)
	}
}

func (s *Synchronizer) adjustCounts(from *Node, delta int) {
	for cur := from; cur != nil; cur = cur.parent {
		cur.subtreeMarkerCount += delta
	}
}

func (s *Synchronizer) emitMarkersChanged(from *Node) {
	for cur := from; cur != nil; cur = cur.parent {
		s.emit(Event{Kind: EventMarkersChanged, Node: cur})
	}
}
