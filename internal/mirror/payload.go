package mirror

// Payload is a host-reported node snapshot, optionally carrying its
// subtree. It is transport neutral; the CDP adapter fills it from
// cdproto's cdp.Node.
type Payload struct {
	NodeID         NodeID
	BackendNodeID  BackendNodeID
	NodeType       NodeType
	NodeName       string
	LocalName      string
	NodeValue      string
	ChildNodeCount int

	// Attributes is a flat name, value, name, value... list.
	Attributes []string

	Children         []*Payload
	ShadowRoots      []*Payload
	PseudoElements   []*Payload
	TemplateContent  *Payload
	ImportedDocument *Payload
	ContentDocument  *Payload
	DistributedNodes []Shortcut

	DocumentURL    string
	BaseURL        string
	PublicID       string
	SystemID       string
	InternalSubset string
	XMLVersion     string
	Name           string
	Value          string
	FrameID        string
	PseudoType     PseudoType
	ShadowRootType ShadowRootType
}
