package types

import "time"

// Turn is one persisted conversation turn within an audit session.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	// Hidden turns shape model behavior but are excluded from
	// user-facing transcripts.
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditSession is the parent record every turn and item audit hangs off.
type AuditSession struct {
	ID             int64     `json:"id"`
	UUID           string    `json:"uuid"`
	OrganizationID int64     `json:"organization_id"`
	LocationID     int64     `json:"location_id"`
	AuditorID      int64     `json:"auditor_id"`
	AuditorName    string    `json:"auditor_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ItemAuditStateRequiresValidation is the only state this module writes.
// Review tooling moves audits out of it.
const ItemAuditStateRequiresValidation = "requires_validation"

// ItemAudit records one audited item within an audit session.
type ItemAudit struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	AuditorID      int64     `json:"auditor_id"`
	AuditID        int64     `json:"audit_id"`
	LocationID     *int64    `json:"location_id,omitempty"`
	State          string    `json:"state"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Comments       string    `json:"comments,omitempty"`
	Condition      string    `json:"condition,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	ImageConfirmed *bool     `json:"image_confirmed,omitempty"`
	SerialNumber   string    `json:"serial_number,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// Item is an inventory item eligible for auditing.
type Item struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	SerialNumber  string     `json:"serial_number,omitempty"`
	LocationID    *int64     `json:"location_id,omitempty"`
	LastAuditedAt *time.Time `json:"last_audited_at,omitempty"`
}

// Location is a physical place items and audits are tied to.
type Location struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Organization owns locations, items, and audit sessions.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
