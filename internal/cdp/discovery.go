package cdp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TargetTypePage is the CDP target type for browser pages.
const TargetTypePage = "page"

// discoveryTimeout bounds every request to the HTTP debugging endpoints.
const discoveryTimeout = 5 * time.Second

// Tab is a page target listed by the /json endpoint.
type Tab struct {
	TargetID string
	Type     string
	Title    string
	URL      string
}

// BrowserInfo holds information about the connected Chrome instance.
type BrowserInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	V8Version            string `json:"V8-Version"`
	WebKitVersion        string `json:"WebKit-Version"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// targetJSON is one entry of the /json listing.
type targetJSON struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl"`
}

func endpoint(port, path string) string {
	return fmt.Sprintf("http://localhost:%s%s", port, path)
}

// getJSON decodes the response of a GET against the debugging endpoint.
func getJSON(client *http.Client, port, path string, out interface{}) error {
	resp, err := client.Get(endpoint(port, path))
	if err != nil {
		return fmt.Errorf("connect to chrome on port %s: %w", port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// put issues one of the state-changing debugging calls, which Chrome only
// accepts as PUT.
func put(port, path string) error {
	client := &http.Client{Timeout: discoveryTimeout}

	req, err := http.NewRequest(http.MethodPut, endpoint(port, path), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status: %d", path, resp.StatusCode)
	}
	return nil
}

// DiscoverBrowserInfo queries /json/version for the browser websocket URL.
func DiscoverBrowserInfo(port string) (*BrowserInfo, error) {
	var info BrowserInfo
	if err := getJSON(&http.Client{Timeout: discoveryTimeout}, port, "/json/version", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DiscoverTabs lists the open page targets. It is used once per connection;
// afterwards targets are tracked through CDP target events.
func DiscoverTabs(port string) ([]*Tab, error) {
	return discoverTabs(&http.Client{Timeout: discoveryTimeout}, port)
}

func discoverTabs(client *http.Client, port string) ([]*Tab, error) {
	var targets []targetJSON
	if err := getJSON(client, port, "/json", &targets); err != nil {
		return nil, err
	}

	var tabs []*Tab
	for _, t := range targets {
		if t.Type != TargetTypePage {
			continue
		}
		tabs = append(tabs, &Tab{
			TargetID: t.ID,
			Type:     t.Type,
			Title:    t.Title,
			URL:      t.URL,
		})
	}
	return tabs, nil
}

// WaitForChrome waits until /json/version answers and at least one page
// target exists.
func WaitForChrome(port string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	versionReady := false
	for time.Now().Before(deadline) {
		if !versionReady {
			var info BrowserInfo
			versionReady = getJSON(client, port, "/json/version", &info) == nil
		}
		if versionReady {
			tabs, err := discoverTabs(client, port)
			if err == nil && len(tabs) > 0 {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !versionReady {
		return fmt.Errorf("chrome not available on port %s after %v", port, timeout)
	}
	return fmt.Errorf("chrome available but no page targets after %v", timeout)
}

// OpenNewTab opens a tab on targetURL.
func OpenNewTab(port, targetURL string) error {
	return put(port, "/json/new?"+url.QueryEscape(targetURL))
}

// CloseTab closes a tab by target id.
func CloseTab(port, targetID string) error {
	return put(port, "/json/close/"+targetID)
}
