package urlutil

import "encoding/base64"

// Base64Encode/Base64Decode wrap the standard encoding (RFC 4648 with padding),
// the encoding the WebSocket handshake's Sec-WebSocket-Accept uses. stdlib's
// implementation is the correct fit here precisely because it IS the
// external collaborator, not a hand-rolled stand-in for an ecosystem library.
func Base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
