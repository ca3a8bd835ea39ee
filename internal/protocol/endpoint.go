package protocol

import (
	"fmt"
	"strings"
)

// ExecuteURL builds the polling transport endpoint for a kernel. Both the
// creation call (POST) and the status call (GET) use the same URL.
func ExecuteURL(base, kernelID string) string {
	return fmt.Sprintf("%s/api/kernels/%s/execute", strings.TrimRight(base, "/"), kernelID)
}

// WebsocketURL builds the streaming transport endpoint for a kernel.
func WebsocketURL(wsBase, kernelID string) string {
	return fmt.Sprintf("%s/api/kernels/%s/execute_websocket", strings.TrimRight(wsBase, "/"), kernelID)
}

// DeriveWebsocketBase converts an HTTP base URL into the corresponding
// websocket base. Unknown schemes are returned unchanged so the dialer
// reports the real problem.
func DeriveWebsocketBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// AuthorizationValue formats a token for the Authorization header the
// backend expects. Returns "" when no token is configured.
func AuthorizationValue(token string) string {
	if token == "" {
		return ""
	}
	return "token " + token
}
