package domain

import "time"

// Channel is how a Notification was (or would be) delivered (spec.md §3).
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// NotificationStatus tracks a Notification's lifecycle (spec.md §4.5).
// Transitions only ever move sent->read or sent->cooldown, never back.
type NotificationStatus string

const (
	NotificationSent     NotificationStatus = "sent"
	NotificationRead     NotificationStatus = "read"
	NotificationCooldown NotificationStatus = "cooldown"
)

// Notification is a (user, event) unique alert round.
type Notification struct {
	ID              string
	UserID          string
	EventID         string
	Symbol          string
	Channel         Channel
	Status          NotificationStatus
	Message         string
	DeltaAnnotation bool // set when delta re-alert bypassed cooldown (SPEC_FULL.md §3)
	SentAtUTC       time.Time
}
