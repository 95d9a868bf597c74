package monitor

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajsharma/dom_tail/internal/mirror"
)

func TestPayloadFromNode(t *testing.T) {
	node := &cdp.Node{
		NodeID:         10,
		BackendNodeID:  110,
		NodeType:       cdp.NodeTypeElement,
		NodeName:       "DIV",
		LocalName:      "div",
		ChildNodeCount: 1,
		Attributes:     []string{"id", "host"},
		Children: []*cdp.Node{
			{NodeID: 11, NodeType: cdp.NodeTypeText, NodeName: "#text", NodeValue: "hi"},
		},
		ShadowRoots: []*cdp.Node{
			{NodeID: 12, NodeType: cdp.NodeTypeDocumentFragment, NodeName: "#document-fragment", ShadowRootType: cdp.ShadowRootTypeClosed},
		},
		PseudoElements: []*cdp.Node{
			{NodeID: 13, NodeType: cdp.NodeTypeElement, NodeName: "::after", PseudoType: cdp.PseudoTypeAfter},
		},
		DistributedNodes: []*cdp.BackendNode{
			{NodeType: cdp.NodeTypeElement, NodeName: "SPAN", BackendNodeID: 140},
			nil,
		},
		FrameID: "frame-1",
	}

	p := PayloadFromNode(node)
	require.NotNil(t, p)

	assert.Equal(t, mirror.NodeID(10), p.NodeID)
	assert.Equal(t, mirror.BackendNodeID(110), p.BackendNodeID)
	assert.Equal(t, mirror.ElementNode, p.NodeType)
	assert.Equal(t, 1, p.ChildNodeCount)
	assert.Equal(t, []string{"id", "host"}, p.Attributes)
	assert.Equal(t, "frame-1", p.FrameID)

	require.Len(t, p.Children, 1)
	assert.Equal(t, "hi", p.Children[0].NodeValue)
	assert.Nil(t, p.Children[0].Children, "unrequested children must stay nil")

	require.Len(t, p.ShadowRoots, 1)
	assert.Equal(t, mirror.ShadowRootClosed, p.ShadowRoots[0].ShadowRootType)

	require.Len(t, p.PseudoElements, 1)
	assert.Equal(t, mirror.PseudoAfter, p.PseudoElements[0].PseudoType)

	assert.Equal(t, []mirror.Shortcut{
		{BackendID: 140, NodeType: mirror.ElementNode, NodeName: "SPAN"},
	}, p.DistributedNodes)

	assert.Nil(t, p.TemplateContent)
	assert.Nil(t, p.ContentDocument)
	assert.Nil(t, p.ImportedDocument)
}

func TestPayloadFromNodeDocuments(t *testing.T) {
	frame := &cdp.Node{
		NodeID:   20,
		NodeType: cdp.NodeTypeElement,
		NodeName: "IFRAME",
		ContentDocument: &cdp.Node{
			NodeID:      21,
			NodeType:    cdp.NodeTypeDocument,
			NodeName:    "#document",
			DocumentURL: "https://frame.example.com/",
			BaseURL:     "https://frame.example.com/",
			XMLVersion:  "",
		},
	}
	template := &cdp.Node{
		NodeID:          30,
		NodeType:        cdp.NodeTypeElement,
		NodeName:        "TEMPLATE",
		TemplateContent: &cdp.Node{NodeID: 31, NodeType: cdp.NodeTypeDocumentFragment, NodeName: "#document-fragment"},
	}

	p := PayloadFromNode(frame)
	require.NotNil(t, p.ContentDocument)
	assert.Equal(t, "https://frame.example.com/", p.ContentDocument.DocumentURL)

	p = PayloadFromNode(template)
	require.NotNil(t, p.TemplateContent)
	assert.Equal(t, mirror.NodeID(31), p.TemplateContent.NodeID)

	assert.Nil(t, PayloadFromNode(nil))
	assert.Nil(t, PayloadsFromNodes(nil))
	assert.Empty(t, PayloadsFromNodes([]*cdp.Node{nil}))
}

func TestIDConversions(t *testing.T) {
	assert.Equal(t, []mirror.NodeID{1, 2}, nodeIDs([]cdp.NodeID{1, 2}))
	assert.Equal(t, []cdp.BackendNodeID{7}, backendIDs([]mirror.BackendNodeID{7}))
	assert.Empty(t, nodeIDs(nil))
}
