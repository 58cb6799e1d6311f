// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditEvent is published whenever an audit log entry is written. It
// carries enough information for downstream consumers to alert or feed
// analytics without querying the primary database.
type AuditEvent struct {
	UserID     uint   `json:"user_id"`
	TenantID   *uint  `json:"tenant_id,omitempty"`
	Action     string `json:"action"`
	Subject    string `json:"subject"`
	SubjectID  string `json:"subject_id,omitempty"`
	ClientInfo string `json:"client_info,omitempty"`
	RecordedAt string `json:"recorded_at"`
}
