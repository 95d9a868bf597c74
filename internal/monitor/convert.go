package monitor

import (
	"github.com/chromedp/cdproto/cdp"

	"github.com/ajsharma/dom_tail/internal/mirror"
)

// PayloadFromNode converts a cdproto node snapshot into a mirror payload,
// recursively. A nil node converts to nil.
func PayloadFromNode(n *cdp.Node) *mirror.Payload {
	if n == nil {
		return nil
	}

	p := &mirror.Payload{
		NodeID:           mirror.NodeID(n.NodeID),
		BackendNodeID:    mirror.BackendNodeID(n.BackendNodeID),
		NodeType:         mirror.NodeType(n.NodeType),
		NodeName:         n.NodeName,
		LocalName:        n.LocalName,
		NodeValue:        n.NodeValue,
		ChildNodeCount:   int(n.ChildNodeCount),
		Attributes:       append([]string(nil), n.Attributes...),
		Children:         PayloadsFromNodes(n.Children),
		ShadowRoots:      PayloadsFromNodes(n.ShadowRoots),
		PseudoElements:   PayloadsFromNodes(n.PseudoElements),
		TemplateContent:  PayloadFromNode(n.TemplateContent),
		ContentDocument:  PayloadFromNode(n.ContentDocument),
		DistributedNodes: shortcutsFromBackend(n.DistributedNodes),
		DocumentURL:      n.DocumentURL,
		BaseURL:          n.BaseURL,
		PublicID:         n.PublicID,
		SystemID:         n.SystemID,
		InternalSubset:   n.InternalSubset,
		XMLVersion:       n.XMLVersion,
		Name:             n.Name,
		Value:            n.Value,
		FrameID:          string(n.FrameID),
		PseudoType:       mirror.PseudoType(n.PseudoType),
		ShadowRootType:   mirror.ShadowRootType(n.ShadowRootType),
	}
	// The protocol no longer reports imported documents; ImportedDocument
	// stays nil.
	return p
}

// PayloadsFromNodes converts a list of nodes. A nil list stays nil so that
// "children not requested" survives the conversion.
func PayloadsFromNodes(nodes []*cdp.Node) []*mirror.Payload {
	if nodes == nil {
		return nil
	}
	out := make([]*mirror.Payload, 0, len(nodes))
	for _, n := range nodes {
		if p := PayloadFromNode(n); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func shortcutsFromBackend(nodes []*cdp.BackendNode) []mirror.Shortcut {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]mirror.Shortcut, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, mirror.Shortcut{
			BackendID: mirror.BackendNodeID(n.BackendNodeID),
			NodeType:  mirror.NodeType(n.NodeType),
			NodeName:  n.NodeName,
		})
	}
	return out
}

func nodeIDs(ids []cdp.NodeID) []mirror.NodeID {
	out := make([]mirror.NodeID, len(ids))
	for i, id := range ids {
		out[i] = mirror.NodeID(id)
	}
	return out
}

func backendIDs(ids []mirror.BackendNodeID) []cdp.BackendNodeID {
	out := make([]cdp.BackendNodeID, len(ids))
	for i, id := range ids {
		out[i] = cdp.BackendNodeID(id)
	}
	return out
}
