package redis

import "strings"

// Every key starts with keyNamespace and blank parts are dropped.
const keyNamespace = "cf"

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

// LockKey names the distributed lock held by a cron worker replica.
func (c *Client) LockKey(name string) string { return key("lock", name) }

// AccessSessionKey maps an access token jti to its refresh session.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}
