package models

import "time"

// ScanEvent is the Mongo-backed diagnostic record of one scan attempt.
// Rows expire via a TTL index on expires_at.
type ScanEvent struct {
	OrganizationID string    `bson:"organization_id" json:"organization_id"`
	SocketId       string    `bson:"socket_id" json:"socket_id"`
	Uid            string    `bson:"uid,omitempty" json:"uid,omitempty"`
	Outcome        string    `bson:"outcome" json:"outcome"` // 'assigned', 'reassign-prompt', 'failed', 'discarded'
	Message        string    `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expires_at"`
}
