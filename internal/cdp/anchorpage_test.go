package cdp

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestAnchorPageHTML(t *testing.T) {
	for _, expected := range []string{
		"<!DOCTYPE html>",
		"<title>dom_tail",
		"dom_tail is mirroring",
	} {
		if !strings.Contains(AnchorPageHTML, expected) {
			t.Errorf("AnchorPageHTML should contain %q", expected)
		}
	}
}

func TestAnchorPageURL(t *testing.T) {
	u := anchorPageURL()
	const prefix = "data:text/html;base64,"
	if !strings.HasPrefix(u, prefix) {
		t.Fatalf("expected data URL, got %q", u)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, prefix))
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	if string(decoded) != AnchorPageHTML {
		t.Error("decoded HTML should match AnchorPageHTML")
	}
	if !isInternalURL(u) {
		t.Error("the anchor page must count as internal")
	}
}

func TestIsInternalURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"about:blank", "about:blank", true},
		{"data URL", "data:text/html;base64,abc123", true},
		{"data URL plain", "data:text/html,<html></html>", true},
		{"dom_tail in path", "file:///tmp/dom_tail_status.html", true},
		{"dom_tail in URL", "http://localhost/dom_tail/test", true},

		{"google", "https://www.google.com", false},
		{"localhost", "http://localhost:8080", false},
		{"chrome newtab", "chrome://newtab/", false},
		{"file URL", "file:///Users/test/document.html", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInternalURL(tt.url); got != tt.expected {
				t.Errorf("isInternalURL(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}
