package cdp

import (
	"encoding/base64"
	"strings"
)

// AnchorPageHTML is loaded into the tab the manager holds its browser
// connection through. It is never mirrored.
const AnchorPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>dom_tail - Mirroring Active</title>
    <style>
        body { font-family: system-ui; padding: 40px; background: #1a1a2e; color: #eee; }
        .status { color: #4ecca3; font-size: 24px; }
        .info { color: #888; margin-top: 20px; }
    </style>
</head>
<body>
    <h1 class="status">dom_tail is mirroring this browser</h1>
    <p class="info">This tab holds the DevTools connection and is not mirrored itself.</p>
    <p class="info">Closing it makes dom_tail reconnect.</p>
</body>
</html>`

// internalMarker identifies URLs that belong to dom_tail itself.
const internalMarker = "dom_tail"

// anchorPageURL is the data: URL of AnchorPageHTML.
func anchorPageURL() string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(AnchorPageHTML))
}

// isInternalURL reports whether a tab shows a page dom_tail opened for
// itself, which is never mirrored.
func isInternalURL(u string) bool {
	switch {
	case u == "about:blank":
		return true
	case strings.HasPrefix(u, "data:"):
		return true
	case strings.Contains(u, internalMarker):
		return true
	}
	return false
}
