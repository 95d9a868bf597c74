package monitor

import (
	"github.com/ajsharma/dom_tail/internal/events"
	"github.com/ajsharma/dom_tail/internal/mirror"
	"github.com/ajsharma/dom_tail/internal/redact"
)

// journal is the mirror observer that records every notification in the
// tab's JSONL log. It runs on the loop.
func (m *DOMMonitor) journal(ev mirror.Event) {
	m.metrics.ObserveMirrorEvent(string(ev.Kind))
	if le := m.logEventFor(ev); le != nil {
		m.writeEvent(le)
	}
}

// logEventFor converts a notification into a log line, or nil when its
// category is disabled.
func (m *DOMMonitor) logEventFor(ev mirror.Event) *events.LogEvent {
	cfg := m.config
	site, tabID := m.CurrentSite(), m.tabID

	switch ev.Kind {
	case mirror.EventDocumentUpdated:
		if !cfg.EnableStructure {
			return nil
		}
		url := ""
		if ev.Node != nil && ev.Node.Document() != nil {
			url = m.redactor.RedactURL(ev.Node.Document().URL)
		}
		return events.NewDocumentUpdatedEvent(site, tabID, url, m.mirror.Len())

	case mirror.EventNodeInserted:
		if !cfg.EnableStructure {
			return nil
		}
		var parentID int64
		if p := ev.Node.Parent(); p != nil {
			parentID = int64(p.ID())
		}
		return events.NewNodeInsertedEvent(site, tabID, nodeInfo(ev.Node), parentID)

	case mirror.EventChildrenSet:
		if !cfg.EnableStructure {
			return nil
		}
		return events.NewChildrenSetEvent(site, tabID, nodeInfo(ev.Node), len(ev.Node.Children()))

	case mirror.EventNodeRemoved:
		if !cfg.EnableStructure {
			return nil
		}
		// The node is already detached; it is logged under its former
		// parent's path.
		info := nodeInfo(ev.Node)
		info.Path = ev.Parent.Path()
		return events.NewNodeRemovedEvent(site, tabID, info, int64(ev.Parent.ID()))

	case mirror.EventAttrModified:
		if !cfg.EnableAttributes {
			return nil
		}
		value, _ := ev.Node.Attribute(ev.Name)
		value = m.redactor.RedactAttribute(elementOf(ev.Node), ev.Name, value)
		return events.NewAttributeModifiedEvent(site, tabID, nodeInfo(ev.Node), ev.Name, value)

	case mirror.EventAttrRemoved:
		if !cfg.EnableAttributes {
			return nil
		}
		return events.NewAttributeRemovedEvent(site, tabID, nodeInfo(ev.Node), ev.Name)

	case mirror.EventCharacterDataModified:
		if !cfg.EnableCharacterData {
			return nil
		}
		parentName := ""
		if p := ev.Node.Parent(); p != nil {
			parentName = p.NodeName()
		}
		value := m.redactor.RedactText(parentName, ev.Node.NodeValue())
		return events.NewCharacterDataModifiedEvent(site, tabID, nodeInfo(ev.Node), value)

	case mirror.EventChildCountUpdated:
		if !cfg.EnableStructure {
			return nil
		}
		return events.NewChildCountUpdatedEvent(site, tabID, nodeInfo(ev.Node), ev.Node.ChildNodeCount())

	case mirror.EventDistributedNodesChanged:
		if !cfg.EnableStructure {
			return nil
		}
		return events.NewDistributedNodesEvent(site, tabID, nodeInfo(ev.Node), len(ev.Node.DistributedNodes()))

	case mirror.EventMarkersChanged:
		if !cfg.EnableMarkers {
			return nil
		}
		return events.NewMarkersChangedEvent(site, tabID, nodeInfo(ev.Node), m.mirror.SubtreeMarkerCount(ev.Node))

	case mirror.EventNodeInspected:
		return events.NewNodeInspectedEvent(site, tabID, int64(ev.Deferred.BackendID))

	case mirror.EventDOMMutated:
		if !cfg.EnableStructure {
			return nil
		}
		return events.NewDOMMutatedEvent(site, tabID, nodeInfo(ev.Node))
	}
	return nil
}

func nodeInfo(n *mirror.Node) events.NodeInfo {
	return events.NodeInfo{
		NodeID:        int64(n.ID()),
		BackendNodeID: int64(n.BackendID()),
		NodeName:      n.NodeNameInCorrectCase(),
		Path:          n.Path(),
	}
}

func elementOf(n *mirror.Node) redact.Element {
	inputType, _ := n.Attribute("type")
	return redact.Element{NodeName: n.NodeName(), InputType: inputType}
}
