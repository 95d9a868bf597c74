// Package logger writes per-tab JSONL logs of mirror activity.
package logger

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// UnknownSite is the default site name for unknown or invalid URLs.
const UnknownSite = "unknown"

// LogFileName is the name of the JSONL file in each site/tab directory.
const LogFileName = "dom.jsonl"

// TabRegistry maps CDP target ids to short, stable tab ids for one
// session.
type TabRegistry struct {
	sessionID   string
	counter     atomic.Int64
	targetToTab map[string]string
	mu          sync.RWMutex
}

// NewTabRegistry creates a registry with a fresh session id.
func NewTabRegistry() *TabRegistry {
	return &TabRegistry{
		sessionID:   uuid.NewString(),
		targetToTab: make(map[string]string),
	}
}

// SessionID returns the session id of this registry.
func (r *TabRegistry) SessionID() string {
	return r.sessionID
}

// nextTabID returns tab-1, tab-2, ... in order.
func (r *TabRegistry) nextTabID() string {
	return "tab-" + strconv.FormatInt(r.counter.Add(1), 10)
}

// GetOrCreateTabID returns the tab id for a target, assigning one if
// needed.
func (r *TabRegistry) GetOrCreateTabID(targetID string) string {
	r.mu.RLock()
	if tabID, exists := r.targetToTab[targetID]; exists {
		r.mu.RUnlock()
		return tabID
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if tabID, exists := r.targetToTab[targetID]; exists {
		return tabID
	}

	tabID := r.nextTabID()
	r.targetToTab[targetID] = tabID
	return tabID
}

// GetTabID returns the tab id for a target, or "" if it has none.
func (r *TabRegistry) GetTabID(targetID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.targetToTab[targetID]
}

// RemoveTarget forgets a target.
func (r *TabRegistry) RemoveTarget(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targetToTab, targetID)
}

// Len returns the number of registered targets.
func (r *TabRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targetToTab)
}

var siteReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0"
}

// SanitizeSiteName converts a hostname into a safe directory name. The
// port is kept only for loopback hosts.
func SanitizeSiteName(hostname string) string {
	if hostname == "" {
		return UnknownSite
	}

	if host, port, ok := strings.Cut(hostname, ":"); ok {
		hostname = host
		if isLoopback(host) {
			hostname = host + "_" + port
		}
	}

	result := siteReplacer.Replace(hostname)
	if len(result) > 255 {
		result = result[:255]
	}
	return result
}

// ExtractSite returns the sanitized site name of a document URL.
func ExtractSite(urlStr string) string {
	if urlStr == "" {
		return UnknownSite
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return UnknownSite
	}

	hostname := u.Hostname()
	if hostname == "" {
		// about:blank, data:, file:
		if u.Scheme != "" {
			return SanitizeSiteName(u.Scheme + "_" + u.Opaque)
		}
		return UnknownSite
	}

	if port := u.Port(); port != "" && isLoopback(hostname) {
		return SanitizeSiteName(hostname + ":" + port)
	}
	return SanitizeSiteName(hostname)
}

// GetLogPath returns the log file path for a site and tab.
func GetLogPath(baseDir, site, tabID string) string {
	return filepath.Join(baseDir, site, tabID, LogFileName)
}
