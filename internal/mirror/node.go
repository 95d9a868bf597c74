package mirror

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// NodeID identifies a node within one mirror. Ids are assigned by the host.
type NodeID int64

// BackendNodeID identifies a node on the host side independently of
// whether it has been pushed to the mirror.
type BackendNodeID int64

// NodeType is the DOM node type discriminant.
type NodeType int64

// Node types as defined by the DOM standard.
const (
	ElementNode               NodeType = 1
	AttributeNode             NodeType = 2
	TextNode                  NodeType = 3
	CDATASectionNode          NodeType = 4
	ProcessingInstructionNode NodeType = 7
	CommentNode               NodeType = 8
	DocumentNode              NodeType = 9
	DocumentTypeNode          NodeType = 10
	DocumentFragmentNode      NodeType = 11
)

// PseudoType names a generated-content pseudo element.
type PseudoType string

// Common pseudo element types.
const (
	PseudoBefore PseudoType = "before"
	PseudoAfter  PseudoType = "after"
)

// ShadowRootType is the mode of a shadow root.
type ShadowRootType string

// Shadow root modes.
const (
	ShadowRootUserAgent ShadowRootType = "user-agent"
	ShadowRootOpen      ShadowRootType = "open"
	ShadowRootClosed    ShadowRootType = "closed"
)

// Attribute is a single name/value pair on an element.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Shortcut is a lightweight reference to a node distributed into an
// insertion point. It is never mirrored as a full node.
type Shortcut struct {
	BackendID BackendNodeID `json:"backend_node_id"`
	NodeType  NodeType      `json:"node_type"`
	NodeName  string        `json:"node_name"`
}

// DocumentInfo holds the document-level metadata of a #document node.
type DocumentInfo struct {
	URL             string
	BaseURL         string
	DocumentElement *Node
	Body            *Node
}

// doctypeInfo is only set for DOCTYPE nodes.
type doctypeInfo struct {
	publicID       string
	systemID       string
	internalSubset string
}

// Node is the mirrored state of one remote DOM node. A Node is a single
// tagged record: kind-specific data lives in optional fields selected by
// nodeType.
type Node struct {
	id        NodeID
	backendID BackendNodeID
	nodeType  NodeType
	nodeName  string
	localName string
	nodeValue string

	attributes []Attribute
	attrIndex  map[string]int

	children       []*Node
	childNodeCount int

	parent          *Node
	index           int
	firstChild      *Node
	lastChild       *Node
	nextSibling     *Node
	previousSibling *Node

	ownerDocument  *Node
	isInShadowTree bool

	shadowRoots      []*Node
	shadowRootType   ShadowRootType
	pseudoElements   map[PseudoType]*Node
	pseudoType       PseudoType
	templateContent  *Node
	importedDocument *Node
	contentDocument  *Node
	distributedNodes []Shortcut

	markers            map[string]any
	subtreeMarkerCount int

	frameID    string
	xmlVersion string

	document *DocumentInfo
	doctype  *doctypeInfo

	// Attribute nodes only.
	attrName  string
	attrValue string
}

// ID returns the node id.
func (n *Node) ID() NodeID { return n.id }

// BackendID returns the host backend id.
func (n *Node) BackendID() BackendNodeID { return n.backendID }

// NodeType returns the DOM node type.
func (n *Node) NodeType() NodeType { return n.nodeType }

// NodeName returns the node name as reported by the host.
func (n *Node) NodeName() string { return n.nodeName }

// LocalName returns the local name.
func (n *Node) LocalName() string { return n.localName }

// NodeValue returns the node value (text and comment content).
func (n *Node) NodeValue() string { return n.nodeValue }

// Attributes returns a copy of the attribute list in insertion order.
func (n *Node) Attributes() []Attribute {
	out := make([]Attribute, len(n.attributes))
	copy(out, n.attributes)
	return out
}

// Attribute returns the value of the named attribute.
func (n *Node) Attribute(name string) (string, bool) {
	i, ok := n.attrIndex[name]
	if !ok {
		return "", false
	}
	return n.attributes[i].Value, true
}

// HasAttributes reports whether the node has any attributes.
func (n *Node) HasAttributes() bool { return len(n.attributes) > 0 }

// ChildNodeCount returns the advertised child count. It may be non-zero
// while Children is still nil.
func (n *Node) ChildNodeCount() int { return n.childNodeCount }

// Children returns a copy of the child list, or nil if the children have
// not been requested from the host yet.
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Parent returns the owning node, or nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the position in the parent's child list, or -1 when the
// node is not a regular child (roots, shadow roots, pseudo elements).
func (n *Node) Index() int { return n.index }

// FirstChild returns the first child.
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the last child.
func (n *Node) LastChild() *Node { return n.lastChild }

// NextSibling returns the next sibling.
func (n *Node) NextSibling() *Node { return n.nextSibling }

// PreviousSibling returns the previous sibling.
func (n *Node) PreviousSibling() *Node { return n.previousSibling }

// OwnerDocument returns the document this node belongs to.
func (n *Node) OwnerDocument() *Node { return n.ownerDocument }

// Document returns the document metadata for #document nodes, nil otherwise.
func (n *Node) Document() *DocumentInfo { return n.document }

// ShadowRoots returns a copy of the shadow-root list.
func (n *Node) ShadowRoots() []*Node {
	out := make([]*Node, len(n.shadowRoots))
	copy(out, n.shadowRoots)
	return out
}

// HasShadowRoots reports whether the node hosts any shadow roots.
func (n *Node) HasShadowRoots() bool { return len(n.shadowRoots) > 0 }

// PseudoElements returns a copy of the pseudo-element map.
func (n *Node) PseudoElements() map[PseudoType]*Node {
	out := make(map[PseudoType]*Node, len(n.pseudoElements))
	for k, v := range n.pseudoElements {
		out[k] = v
	}
	return out
}

// PseudoElement returns the pseudo element of the given type.
func (n *Node) PseudoElement(t PseudoType) *Node { return n.pseudoElements[t] }

// BeforePseudoElement returns the ::before pseudo element.
func (n *Node) BeforePseudoElement() *Node { return n.pseudoElements[PseudoBefore] }

// AfterPseudoElement returns the ::after pseudo element.
func (n *Node) AfterPseudoElement() *Node { return n.pseudoElements[PseudoAfter] }

// TemplateContent returns the content fragment of a template element.
func (n *Node) TemplateContent() *Node { return n.templateContent }

// ImportedDocument returns the imported document of a link element.
func (n *Node) ImportedDocument() *Node { return n.importedDocument }

// ContentDocument returns the document of a frame owner element.
func (n *Node) ContentDocument() *Node { return n.contentDocument }

// DistributedNodes returns a copy of the distributed-node shortcuts.
func (n *Node) DistributedNodes() []Shortcut {
	out := make([]Shortcut, len(n.distributedNodes))
	copy(out, n.distributedNodes)
	return out
}

// IsInShadowTree reports whether the node lives inside a shadow tree.
func (n *Node) IsInShadowTree() bool { return n.isInShadowTree }

// IsShadowRoot reports whether the node is a shadow root.
func (n *Node) IsShadowRoot() bool { return n.shadowRootType != "" }

// ShadowRootType returns the shadow root mode, empty for other nodes.
func (n *Node) ShadowRootType() ShadowRootType { return n.shadowRootType }

// PseudoType returns the pseudo type, empty for regular nodes.
func (n *Node) PseudoType() PseudoType { return n.pseudoType }

// IsXMLNode reports whether the node belongs to an XML document.
func (n *Node) IsXMLNode() bool { return n.xmlVersion != "" }

// IsInsertionPoint reports whether the node is a shadow DOM insertion point.
func (n *Node) IsInsertionPoint() bool {
	if n.IsXMLNode() {
		return false
	}
	switch n.nodeName {
	case "SHADOW", "CONTENT", "SLOT":
		return true
	}
	return false
}

// DoctypeIDs returns the public id, system id and internal subset of a
// DOCTYPE node.
func (n *Node) DoctypeIDs() (publicID, systemID, internalSubset string) {
	if n.doctype == nil {
		return "", "", ""
	}
	return n.doctype.publicID, n.doctype.systemID, n.doctype.internalSubset
}

// AttrNameValue returns the name and value of an attribute node.
func (n *Node) AttrNameValue() (string, string) { return n.attrName, n.attrValue }

// AncestorShadowRoot returns the closest enclosing shadow root.
func (n *Node) AncestorShadowRoot() *Node {
	if !n.isInShadowTree {
		return nil
	}
	cur := n
	for cur != nil && !cur.IsShadowRoot() {
		cur = cur.parent
	}
	return cur
}

// AncestorShadowHost returns the host of the closest enclosing shadow root.
func (n *Node) AncestorShadowHost() *Node {
	root := n.AncestorShadowRoot()
	if root == nil {
		return nil
	}
	return root.parent
}

// AncestorUserAgentShadowRoot returns the enclosing shadow root if it is a
// user-agent one.
func (n *Node) AncestorUserAgentShadowRoot() *Node {
	root := n.AncestorShadowRoot()
	if root == nil || root.shadowRootType != ShadowRootUserAgent {
		return nil
	}
	return root
}

// NodeNameInCorrectCase returns the display name of the node.
func (n *Node) NodeNameInCorrectCase() string {
	if n.shadowRootType != "" {
		return "#shadow-root (" + string(n.shadowRootType) + ")"
	}
	// No local name or a prefixed name: the node name is case sensitive.
	if n.localName == "" || len(n.localName) != len(n.nodeName) {
		return n.nodeName
	}
	return n.localName
}

// Path returns a stable textual path from the outermost indexed ancestor,
// e.g. "1,HTML,1,BODY". Shadow roots contribute "u" (user-agent) or "a"
// instead of an index.
func (n *Node) Path() string {
	var steps []string
	for cur := n; cur != nil && cur.nodeName != ""; cur = cur.parent {
		var step string
		switch {
		case cur.index >= 0:
			step = strconv.Itoa(cur.index)
		case cur.IsShadowRoot() && cur.parent != nil:
			step = "a"
			if cur.shadowRootType == ShadowRootUserAgent {
				step = "u"
			}
		}
		if step == "" {
			break
		}
		steps = append(steps, step+","+cur.nodeName)
	}
	slices.Reverse(steps)
	return strings.Join(steps, ",")
}

// IsAncestor reports whether n is a strict ancestor of other.
func (n *Node) IsAncestor(other *Node) bool {
	if other == nil {
		return false
	}
	for cur := other.parent; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// IsDescendant reports whether n is a strict descendant of other.
func (n *Node) IsDescendant(other *Node) bool {
	return other != nil && other.IsAncestor(n)
}

// FrameID returns the id of the frame that owns the node, walking up to
// the nearest frame owner.
func (n *Node) FrameID() string {
	cur := n
	if cur.parent != nil {
		cur = cur.parent
	}
	for cur.frameID == "" && cur.parent != nil {
		cur = cur.parent
	}
	return cur.frameID
}

// EnclosingElementOrSelf returns the node itself if it is an element, its
// parent element for text nodes, and nil otherwise.
func (n *Node) EnclosingElementOrSelf() *Node {
	cur := n
	if cur.nodeType == TextNode && cur.parent != nil {
		cur = cur.parent
	}
	if cur.nodeType != ElementNode {
		return nil
	}
	return cur
}

// ResolveURL resolves ref against the base URL of the nearest enclosing
// document. It returns "" when no base URL is known or ref is invalid.
func (n *Node) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur.document == nil || cur.document.BaseURL == "" {
			continue
		}
		base, err := url.Parse(cur.document.BaseURL)
		if err != nil {
			return ""
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		return base.ResolveReference(r).String()
	}
	return ""
}

// setAttributes replaces the attribute list from a flat name/value slice
// and reports whether anything changed.
func (n *Node) setAttributes(flat []string) bool {
	changed := n.attributes == nil || len(flat) != len(n.attributes)*2
	old := n.attrIndex
	oldAttrs := n.attributes

	n.attributes = make([]Attribute, 0, len(flat)/2)
	n.attrIndex = make(map[string]int, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		name, value := flat[i], flat[i+1]
		n.setAttribute(name, value)
		if changed {
			continue
		}
		if j, ok := old[name]; !ok || oldAttrs[j].Value != value {
			changed = true
		}
	}
	return changed
}

func (n *Node) addAttribute(name, value string) {
	n.attrIndex[name] = len(n.attributes)
	n.attributes = append(n.attributes, Attribute{Name: name, Value: value})
}

// setAttribute updates an existing attribute in place or appends it.
func (n *Node) setAttribute(name, value string) {
	if n.attrIndex == nil {
		n.attrIndex = make(map[string]int)
	}
	if i, ok := n.attrIndex[name]; ok {
		n.attributes[i].Value = value
		return
	}
	n.addAttribute(name, value)
}

// removeAttribute drops an attribute and reindexes the ones after it.
func (n *Node) removeAttribute(name string) bool {
	i, ok := n.attrIndex[name]
	if !ok {
		return false
	}
	n.attributes = append(n.attributes[:i], n.attributes[i+1:]...)
	delete(n.attrIndex, name)
	for j := i; j < len(n.attributes); j++ {
		n.attrIndex[n.attributes[j].Name] = j
	}
	return true
}

// renumber recomputes child bookkeeping for the whole child list.
func (n *Node) renumber() {
	n.childNodeCount = len(n.children)
	if n.childNodeCount == 0 {
		n.firstChild = nil
		n.lastChild = nil
		return
	}
	n.firstChild = n.children[0]
	n.lastChild = n.children[n.childNodeCount-1]
	for i, child := range n.children {
		child.index = i
		child.parent = n
		child.previousSibling = nil
		child.nextSibling = nil
		if i > 0 {
			child.previousSibling = n.children[i-1]
		}
		if i+1 < n.childNodeCount {
			child.nextSibling = n.children[i+1]
		}
	}
}

// detach clears the node's position pointers after it left its parent.
func (n *Node) detach() {
	n.parent = nil
	n.index = -1
	n.nextSibling = nil
	n.previousSibling = nil
}
