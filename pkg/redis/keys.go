package redis

import "strings"

const keyNamespace = "iwanyu"

// Key families. Every key is iwanyu:<family>:<parts...>.
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familyLock        = "lock"
	familyWebhook     = "webhook"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return namespaced(familyIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return namespaced(familyRateLimit, scope)
}

func (c *Client) LockKey(name string) string {
	return namespaced(familyLock, name)
}

// WebhookEventKey marks a processed gateway delivery.
func (c *Client) WebhookEventKey(provider, eventID string) string {
	return namespaced(familyWebhook, provider, eventID)
}

// namespaced skips blank parts so a missing id never yields "a::b".
func namespaced(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
