package subscription

import "encoding/base64"

// looksLikeBase64 reports whether s is plausibly a Base64-encoded
// subscription body rather than a raw proxy-URI list or YAML document:
// more than 50 characters drawn only from the Base64 alphabet
// (alphanumeric plus '+', '/', '=').
//
// The length threshold avoids misclassifying a single short proxy URI
// whose query string happens to be alphanumeric.
func looksLikeBase64(s string) bool {
	if len(s) <= 50 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}

// decodeBase64Body decodes a subscription body, trying standard padded
// encoding first and falling back to raw/URL-safe variants, since
// subscription providers are inconsistent about which variant they emit.
func decodeBase64Body(s string) ([]byte, error) {
	decoders := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range decoders {
		if out, err := enc.DecodeString(s); err == nil {
			return out, nil
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}
