package mcp

import "testing"

func TestNegotiateVersionSupported(t *testing.T) {
	v, ok := negotiateVersion("2024-11-05")
	if !ok || v != "2024-11-05" {
		t.Errorf("negotiateVersion(2024-11-05) = (%q, %v), want (2024-11-05, true)", v, ok)
	}
}

func TestNegotiateVersionUnsupportedFallsBackToLatest(t *testing.T) {
	v, ok := negotiateVersion("1999-01-01")
	if ok {
		t.Errorf("expected ok=false for an unsupported version")
	}
	if v != LatestVersion {
		t.Errorf("got %q, want fallback to LatestVersion %q", v, LatestVersion)
	}
}

func TestVersionAtLeast(t *testing.T) {
	cases := []struct {
		v, floor string
		want     bool
	}{
		{"2025-06-18", "2025-03-26", true},
		{"2025-03-26", "2025-06-18", false},
		{"2024-11-05", "2024-11-05", true},
		{"bogus", "2024-11-05", false},
	}
	for _, c := range cases {
		if got := versionAtLeast(c.v, c.floor); got != c.want {
			t.Errorf("versionAtLeast(%q, %q) = %v, want %v", c.v, c.floor, got, c.want)
		}
	}
}

func TestCapabilityGating(t *testing.T) {
	if !supportsNestedCapabilities("2025-06-18") {
		t.Error("2025-06-18 should support nested capabilities")
	}
	if supportsNestedCapabilities("2024-11-05") {
		t.Error("2024-11-05 should not support nested capabilities")
	}
	if !supportsServerTitle("2025-03-26") {
		t.Error("2025-03-26 should support serverInfo.title")
	}
	if !supportsAudioContent("2025-06-18") {
		t.Error("latest version should support audio content")
	}
	if supportsAudioContent("2025-03-26") {
		t.Error("2025-03-26 should not support audio content")
	}
	if !supportsStructuredContent("2025-06-18") {
		t.Error("latest version should support structured content")
	}
	if supportsStructuredContent("2025-03-26") {
		t.Error("2025-03-26 should not support structured content")
	}
	if !requiresProtocolHeader("2025-06-18") {
		t.Error("latest version should require the protocol header")
	}
}
