package llm

import (
	"errors"
	"strings"
)

var ErrMissingAPIKey = errors.New("API key is not configured")

// ResolveAPIKey prefers the per-request key over the server key.
func ResolveAPIKey(requestKey, serverKey string) (string, error) {
	if k := strings.TrimSpace(requestKey); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(serverKey); k != "" {
		return k, nil
	}
	return "", ErrMissingAPIKey
}
