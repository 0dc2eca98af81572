package protocol

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// NormalizeURI validates raw as a URI and applies the one canonicalization
// this protocol performs: an authority-only http or https URL (no path,
// query, or fragment) gets a trailing slash added, matching how browsers
// and most HTTP clients treat "https://example.com" and
// "https://example.com/" as the same resource. Every other form,
// including any other scheme, is returned unchanged.
func NormalizeURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("protocol: invalid uri %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("protocol: invalid uri %q: missing scheme", raw)
	}
	if (u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != "" && u.Path == "" && u.RawQuery == "" && u.Fragment == "" {
		return raw + "/", nil
	}
	return raw, nil
}

// decodeURIField unmarshals the JSON string at raw into *out, normalizing
// it with NormalizeURI. It is the shared hook every URI-bearing wire type
// calls from its UnmarshalJSON, so a malformed URI from a peer surfaces as
// a decode error (and, in turn, an INVALID_PARAMS response) instead of
// reaching a handler unchecked.
func decodeURIField(raw json.RawMessage, out *string) error {
	if len(raw) == 0 || isNullRaw(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	norm, err := NormalizeURI(s)
	if err != nil {
		return err
	}
	*out = norm
	return nil
}
