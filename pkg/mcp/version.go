package mcp

// SupportedVersions lists the protocol versions this core understands,
// newest first (spec §6). Version negotiation (spec §4.4) walks this list.
var SupportedVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// LatestVersion is chosen whenever negotiation falls back (spec §4.4, §8 S7).
const LatestVersion = "2025-06-18"

// negotiateVersion picks a protocol version for a handshake. If requested is
// in SupportedVersions it wins outright; otherwise the server's latest is
// chosen and ok is false, signalling "client-was-supported?: false" (spec
// §4.4, §8 S7).
func negotiateVersion(requested string) (version string, ok bool) {
	for _, v := range SupportedVersions {
		if v == requested {
			return v, true
		}
	}
	return LatestVersion, false
}

// versionAtLeast reports whether v is at least as new as floor, comparing
// positions in SupportedVersions (lower index = newer).
func versionAtLeast(v, floor string) bool {
	vi, fi := versionIndex(v), versionIndex(floor)
	return vi <= fi
}

func versionIndex(v string) int {
	for i, sv := range SupportedVersions {
		if sv == v {
			return i
		}
	}
	return len(SupportedVersions) // unknown: treat as oldest
}

// supportsNestedCapabilities reports whether the negotiated version permits
// nested capability option maps rather than flattened empty objects (spec
// §4.4 "Capabilities shape").
func supportsNestedCapabilities(v string) bool { return versionAtLeast(v, "2025-03-26") }

// supportsServerTitle reports whether serverInfo.title is emitted at v.
func supportsServerTitle(v string) bool { return versionAtLeast(v, "2025-03-26") }

// supportsAudioContent reports whether "audio" tool-result content is valid
// at v (spec §4.4: "audio allowed at the newest supported version").
func supportsAudioContent(v string) bool { return v == LatestVersion }

// supportsStructuredContent reports whether CallToolResult.StructuredContent
// is emitted at v.
func supportsStructuredContent(v string) bool { return versionAtLeast(v, "2025-06-18") }

// requiresProtocolHeader reports whether the HTTP transport must see
// MCP-Protocol-Version on every request at v (spec §4.4).
func requiresProtocolHeader(v string) bool { return v == LatestVersion }
