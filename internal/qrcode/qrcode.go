// Package qrcode extracts table identifiers from decoded QR payloads. The
// decoding itself happens on the client; the server only ever sees the
// decoded text.
package qrcode

import "strings"

// TableIDFromScan extracts a table identifier from a decoded QR payload.
// A payload is either the bare identifier ("T1") or a URL whose last path
// segment is the identifier ("https://host/menu/T1"). An empty result means
// the payload carried no identifier.
func TableIDFromScan(decoded string) string {
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return ""
	}

	if strings.Contains(decoded, "/menu/") {
		decoded = strings.TrimSuffix(decoded, "/")
		parts := strings.Split(decoded, "/")
		return parts[len(parts)-1]
	}

	// Bare identifiers never contain a path separator
	if strings.Contains(decoded, "/") {
		return ""
	}
	return decoded
}
