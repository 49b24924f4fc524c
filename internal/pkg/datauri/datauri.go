// Package datauri decodes RFC 2397 data URIs as submitted by the browser SDK
// (canvas screenshots, file attachments read via FileReader.readAsDataURL).
package datauri

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Decoded is the payload of a parsed data URI.
type Decoded struct {
	MimeType string
	Data     []byte
}

// Parse decodes a base64 data URI of the form data:<mime>;base64,<payload>.
// Non-base64 data URIs are rejected: the SDK only ever produces base64.
func Parse(raw string) (*Decoded, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	rest := raw[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI: missing comma")
	}
	meta := rest[:comma]
	payload := rest[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %q", meta)
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data URI payload")
	}
	return &Decoded{MimeType: mimeType, Data: data}, nil
}
