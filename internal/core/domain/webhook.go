package domain

import "time"

// Webhook is a push-notification channel registered with a provider.
type Webhook struct {
	// ID is the channel id generated at registration.
	ID string `json:"id"`

	ConnectorID int64 `json:"-"`

	// ExpirationTsMs is the expiry as a Unix timestamp in milliseconds.
	ExpirationTsMs int64 `json:"expirationTsMs"`

	URL string `json:"url"`
}

// ExpiresAt returns the expiry as a time.
func (w *Webhook) ExpiresAt() time.Time {
	return time.UnixMilli(w.ExpirationTsMs)
}

// ExpiresWithin reports whether the webhook expires before now+window.
func (w *Webhook) ExpiresWithin(now time.Time, window time.Duration) bool {
	return w.ExpiresAt().Before(now.Add(window))
}

// DriveWebhookTTL is how long a Drive change channel stays registered.
const DriveWebhookTTL = 7 * time.Hour
