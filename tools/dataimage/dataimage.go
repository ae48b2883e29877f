package dataimage

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

var dataURIPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+/-]+);base64,(.+)$`)

// ExtractBase64 accepts either a raw base64 payload or a data-URI of the
// form data:<mime>;base64,<payload> and returns the bare payload.
// A raw payload is accepted only if decoding and re-encoding reproduces
// the input, which also rejects strings still carrying an unstripped
// data-URI prefix.
func ExtractBase64(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("image payload is empty")
	}

	if matches := dataURIPattern.FindStringSubmatch(s); matches != nil {
		payload := matches[2]
		if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
			return "", fmt.Errorf("invalid base64 in data URI: %w", err)
		}
		return payload, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	if base64.StdEncoding.EncodeToString(decoded) != s {
		return "", fmt.Errorf("invalid base64 payload: round-trip mismatch")
	}
	return s, nil
}

// Decode extracts the bare base64 payload from s and returns the decoded bytes.
func Decode(s string) ([]byte, error) {
	payload, err := ExtractBase64(s)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return data, nil
}
