// Package events defines log event types and transformations.
package events

import (
	"time"
)

// LogEvent represents a single logged event in JSONL format.
type LogEvent struct {
	Timestamp string                 `json:"timestamp"`
	Site      string                 `json:"site"`
	TabID     string                 `json:"tab_id"`
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// NewLogEvent creates a new LogEvent with the current timestamp.
func NewLogEvent(site, tabID, eventType string, data map[string]interface{}) *LogEvent {
	return &LogEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Site:      site,
		TabID:     tabID,
		EventType: eventType,
		Data:      data,
	}
}

// NodeInfo identifies a mirrored node in a log line.
type NodeInfo struct {
	NodeID        int64
	BackendNodeID int64
	NodeName      string
	Path          string
}

func (n NodeInfo) fields() map[string]interface{} {
	return map[string]interface{}{
		"node_id":         n.NodeID,
		"backend_node_id": n.BackendNodeID,
		"node_name":       n.NodeName,
		"path":            n.Path,
	}
}

func nodeEvent(site, tabID, eventType string, node NodeInfo, extra map[string]interface{}) *LogEvent {
	data := node.fields()
	for k, v := range extra {
		data[k] = v
	}
	return NewLogEvent(site, tabID, eventType, data)
}

// Event type constants for meta events.
const (
	EventMetaSessionStart = "meta.session_start"
	EventMetaTabCreated   = "meta.tab_created"
	EventMetaTabClosed    = "meta.tab_closed"
	EventMetaSiteChanged  = "meta.site_changed"
	EventMetaSiteEntered  = "meta.site_entered"
)

// Event type constants for page events.
const (
	EventPageNavigate = "page.navigate"
)

// Event type constants for DOM mirror events.
const (
	EventDOMDocumentUpdated       = "dom.document_updated"
	EventDOMNodeInserted          = "dom.node_inserted"
	EventDOMChildrenSet           = "dom.children_set"
	EventDOMNodeRemoved           = "dom.node_removed"
	EventDOMAttributeModified     = "dom.attribute_modified"
	EventDOMAttributeRemoved      = "dom.attribute_removed"
	EventDOMCharacterDataModified = "dom.character_data_modified"
	EventDOMChildCountUpdated     = "dom.child_count_updated"
	EventDOMDistributedNodes      = "dom.distributed_nodes_updated"
	EventDOMMarkersChanged        = "dom.markers_changed"
	EventDOMNodeInspected         = "dom.node_inspected"
	EventDOMMutated               = "dom.mutated"
)

// Event type constants for mirror diagnostics.
const (
	EventMirrorStale             = "mirror.stale_event"
	EventMirrorContractViolation = "mirror.contract_violation"
)

// NewSessionStartEvent creates a meta.session_start event.
func NewSessionStartEvent(sessionID string, chromePID int, version string) *LogEvent {
	return NewLogEvent("_meta", "_session", EventMetaSessionStart, map[string]interface{}{
		"session_id":       sessionID,
		"chrome_pid":       chromePID,
		"dom_tail_version": version,
		"start_time":       time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// NewTabCreatedEvent creates a meta.tab_created event.
func NewTabCreatedEvent(site, tabID, sessionID, targetID, title, url string) *LogEvent {
	return NewLogEvent(site, tabID, EventMetaTabCreated, map[string]interface{}{
		"session_id": sessionID,
		"target_id":  targetID,
		"title":      title,
		"url":        url,
	})
}

// NewTabClosedEvent creates a meta.tab_closed event.
func NewTabClosedEvent(site, tabID, sessionID, targetID string, durationSeconds float64) *LogEvent {
	return NewLogEvent(site, tabID, EventMetaTabClosed, map[string]interface{}{
		"session_id":       sessionID,
		"target_id":        targetID,
		"duration_seconds": durationSeconds,
	})
}

// NewSiteChangedEvent creates a meta.site_changed event.
func NewSiteChangedEvent(oldSite, tabID, newSite, newURL string) *LogEvent {
	return NewLogEvent(oldSite, tabID, EventMetaSiteChanged, map[string]interface{}{
		"old_site": oldSite,
		"new_site": newSite,
		"new_url":  newURL,
	})
}

// NewSiteEnteredEvent creates a meta.site_entered event.
func NewSiteEnteredEvent(site, tabID, fromSite, url string) *LogEvent {
	return NewLogEvent(site, tabID, EventMetaSiteEntered, map[string]interface{}{
		"from_site": fromSite,
		"url":       url,
	})
}

// NewPageNavigateEvent creates a page.navigate event.
func NewPageNavigateEvent(site, tabID, url, frameID string) *LogEvent {
	return NewLogEvent(site, tabID, EventPageNavigate, map[string]interface{}{
		"url":      url,
		"frame_id": frameID,
	})
}

// NewDocumentUpdatedEvent creates a dom.document_updated event. An empty
// url means the mirror was discarded.
func NewDocumentUpdatedEvent(site, tabID, url string, nodeCount int) *LogEvent {
	return NewLogEvent(site, tabID, EventDOMDocumentUpdated, map[string]interface{}{
		"url":        url,
		"node_count": nodeCount,
	})
}

// NewNodeInsertedEvent creates a dom.node_inserted event.
func NewNodeInsertedEvent(site, tabID string, node NodeInfo, parentID int64) *LogEvent {
	return nodeEvent(site, tabID, EventDOMNodeInserted, node, map[string]interface{}{
		"parent_id": parentID,
	})
}

// NewChildrenSetEvent creates a dom.children_set event.
func NewChildrenSetEvent(site, tabID string, parent NodeInfo, childCount int) *LogEvent {
	return nodeEvent(site, tabID, EventDOMChildrenSet, parent, map[string]interface{}{
		"child_count": childCount,
	})
}

// NewNodeRemovedEvent creates a dom.node_removed event.
func NewNodeRemovedEvent(site, tabID string, node NodeInfo, parentID int64) *LogEvent {
	return nodeEvent(site, tabID, EventDOMNodeRemoved, node, map[string]interface{}{
		"parent_id": parentID,
	})
}

// NewAttributeModifiedEvent creates a dom.attribute_modified event.
func NewAttributeModifiedEvent(site, tabID string, node NodeInfo, name, value string) *LogEvent {
	return nodeEvent(site, tabID, EventDOMAttributeModified, node, map[string]interface{}{
		"name":  name,
		"value": value,
	})
}

// NewAttributeRemovedEvent creates a dom.attribute_removed event.
func NewAttributeRemovedEvent(site, tabID string, node NodeInfo, name string) *LogEvent {
	return nodeEvent(site, tabID, EventDOMAttributeRemoved, node, map[string]interface{}{
		"name": name,
	})
}

// NewCharacterDataModifiedEvent creates a dom.character_data_modified event.
func NewCharacterDataModifiedEvent(site, tabID string, node NodeInfo, value string) *LogEvent {
	return nodeEvent(site, tabID, EventDOMCharacterDataModified, node, map[string]interface{}{
		"value": value,
	})
}

// NewChildCountUpdatedEvent creates a dom.child_count_updated event.
func NewChildCountUpdatedEvent(site, tabID string, node NodeInfo, count int) *LogEvent {
	return nodeEvent(site, tabID, EventDOMChildCountUpdated, node, map[string]interface{}{
		"child_node_count": count,
	})
}

// NewDistributedNodesEvent creates a dom.distributed_nodes_updated event.
func NewDistributedNodesEvent(site, tabID string, node NodeInfo, count int) *LogEvent {
	return nodeEvent(site, tabID, EventDOMDistributedNodes, node, map[string]interface{}{
		"distributed_count": count,
	})
}

// NewMarkersChangedEvent creates a dom.markers_changed event.
func NewMarkersChangedEvent(site, tabID string, node NodeInfo, subtreeCount int) *LogEvent {
	return nodeEvent(site, tabID, EventDOMMarkersChanged, node, map[string]interface{}{
		"subtree_marker_count": subtreeCount,
	})
}

// NewNodeInspectedEvent creates a dom.node_inspected event.
func NewNodeInspectedEvent(site, tabID string, backendNodeID int64) *LogEvent {
	return NewLogEvent(site, tabID, EventDOMNodeInspected, map[string]interface{}{
		"backend_node_id": backendNodeID,
	})
}

// NewDOMMutatedEvent creates a dom.mutated event, the coalesced signal for
// a node touched by one or more mutations.
func NewDOMMutatedEvent(site, tabID string, node NodeInfo) *LogEvent {
	return nodeEvent(site, tabID, EventDOMMutated, node, nil)
}

// NewStaleEvent creates a mirror.stale_event event.
func NewStaleEvent(site, tabID, op string, nodeID int64) *LogEvent {
	return NewLogEvent(site, tabID, EventMirrorStale, map[string]interface{}{
		"op":      op,
		"node_id": nodeID,
	})
}

// NewContractViolationEvent creates a mirror.contract_violation event.
func NewContractViolationEvent(site, tabID, op string, nodeID int64, reason string) *LogEvent {
	return NewLogEvent(site, tabID, EventMirrorContractViolation, map[string]interface{}{
		"op":      op,
		"node_id": nodeID,
		"reason":  reason,
	})
}
