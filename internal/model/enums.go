package model

// Source classifies where a contact came from.
type Source string

const (
	SourceCold     Source = "cold"
	SourceEvent    Source = "event"
	SourceInbound  Source = "inbound"
	SourceReferral Source = "referral"
)

func (s Source) Valid() bool {
	switch s {
	case SourceCold, SourceEvent, SourceInbound, SourceReferral:
		return true
	}
	return false
}

// Channel is the outreach medium for a contact.
type Channel string

const (
	ChannelLinkedIn Channel = "linkedin"
	ChannelEmail    Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelLinkedIn || c == ChannelEmail
}

// Label returns the human-readable channel name used in CRM note bodies.
func (c Channel) Label() string {
	if c == ChannelLinkedIn {
		return "LinkedIn"
	}
	return "Email"
}

// Status is a contact's position in the outreach workflow.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusSkipped:
		return true
	}
	return false
}

// SyncStatus tracks whether a sent outreach was mirrored into HubSpot.
// Transitions run forward only: pending -> synced | failed | skipped.
// Re-sending a contact resets it to pending.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
	SyncSkipped SyncStatus = "skipped"
)
