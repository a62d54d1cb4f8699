package normalize

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL makes a scraped href absolute against origin. Absolute URLs are
// returned as is and an empty href stays empty.
func ResolveURL(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	origin = strings.TrimRight(origin, "/")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return origin + raw
}

// EncodeImageToken hides a remote image URL behind the relay: base64 first,
// then percent-encoding so the token survives as a query value.
func EncodeImageToken(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	return url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(imageURL)))
}

// DecodeImageToken reverses EncodeImageToken. It accepts both the raw token
// and one that was already unescaped by the HTTP router.
func DecodeImageToken(token string) (string, error) {
	unescaped, err := url.QueryUnescape(token)
	if err != nil {
		return "", fmt.Errorf("unescape token: %w", err)
	}
	// QueryUnescape turns '+' into ' ', which base64 never contains.
	unescaped = strings.ReplaceAll(unescaped, " ", "+")
	decoded, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	target := string(decoded)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", fmt.Errorf("decoded token is not an http url: %q", target)
	}
	return target, nil
}

// RelayURL builds the public image URL served by the relay endpoint.
func RelayURL(relayBase, token string) string {
	if token == "" || relayBase == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(relayBase, "?") {
		sep = "&"
	}
	return relayBase + sep + "src=" + token
}

// KeepExternalURL returns href only when it points under allowedPrefix.
func KeepExternalURL(href, allowedPrefix string) string {
	if allowedPrefix == "" || !strings.HasPrefix(href, allowedPrefix) {
		return ""
	}
	return href
}
