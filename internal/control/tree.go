package control

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ajsharma/dom_tail/internal/mirror"
	"github.com/ajsharma/dom_tail/internal/redact"
)

// maxTextLen truncates character data in tree listings.
const maxTextLen = 60

// WriteTree prints a mirrored subtree, one node per line, indented by
// depth. Elements carry their path. Shadow roots, pseudo elements and
// template contents are listed under their host; a frame's document is its
// only child.
func WriteTree(w io.Writer, root *mirror.Node, r *redact.Redactor) error {
	if root == nil {
		return nil
	}
	var b strings.Builder
	writeNode(&b, root, 0, r)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, n *mirror.Node, depth int, r *redact.Redactor) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(describe(n, r))
	if path := n.Path(); path != "" && n.NodeType() == mirror.ElementNode {
		b.WriteString("  @")
		b.WriteString(path)
	}
	b.WriteByte('\n')

	next := depth + 1
	if t := n.TemplateContent(); t != nil {
		writeNode(b, t, next, r)
	}
	for _, sr := range n.ShadowRoots() {
		writeNode(b, sr, next, r)
	}
	if p := n.BeforePseudoElement(); p != nil {
		writeNode(b, p, next, r)
	}
	children := n.Children()
	for _, c := range children {
		writeNode(b, c, next, r)
	}
	if children == nil && n.ChildNodeCount() > 0 {
		fmt.Fprintf(b, "%s... %d unrequested\n", strings.Repeat("  ", next), n.ChildNodeCount())
	}
	if p := n.AfterPseudoElement(); p != nil {
		writeNode(b, p, next, r)
	}
	for _, p := range otherPseudoElements(n) {
		writeNode(b, p, next, r)
	}
}

// otherPseudoElements returns the pseudo elements besides ::before and
// ::after, ordered by type.
func otherPseudoElements(n *mirror.Node) []*mirror.Node {
	var out []*mirror.Node
	for t, p := range n.PseudoElements() {
		if t != mirror.PseudoBefore && t != mirror.PseudoAfter {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PseudoType() < out[j].PseudoType() })
	return out
}

func describe(n *mirror.Node, r *redact.Redactor) string {
	switch {
	case n.IsShadowRoot():
		return n.NodeNameInCorrectCase()
	case n.PseudoType() != "":
		return "::" + string(n.PseudoType())
	}

	switch n.NodeType() {
	case mirror.ElementNode:
		return openTag(n, r)
	case mirror.TextNode, mirror.CDATASectionNode:
		parentName := ""
		if p := n.Parent(); p != nil {
			parentName = p.NodeName()
		}
		return strconv.Quote(truncate(r.RedactText(parentName, n.NodeValue())))
	case mirror.CommentNode:
		return "<!--" + truncate(n.NodeValue()) + "-->"
	case mirror.DocumentTypeNode:
		return "<!DOCTYPE " + n.NodeName() + ">"
	case mirror.DocumentNode:
		if doc := n.Document(); doc != nil && doc.URL != "" {
			return "#document " + r.RedactURL(doc.URL)
		}
		return "#document"
	}
	return n.NodeNameInCorrectCase()
}

func openTag(n *mirror.Node, r *redact.Redactor) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.NodeNameInCorrectCase())

	inputType, _ := n.Attribute("type")
	el := redact.Element{NodeName: n.NodeName(), InputType: inputType}
	for _, a := range n.Attributes() {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		if a.Value != "" {
			b.WriteString("=")
			b.WriteString(strconv.Quote(truncate(r.RedactAttribute(el, a.Name, a.Value))))
		}
	}
	b.WriteByte('>')
	return b.String()
}

func truncate(s string) string {
	if len(s) <= maxTextLen {
		return s
	}
	return s[:maxTextLen] + "..."
}
