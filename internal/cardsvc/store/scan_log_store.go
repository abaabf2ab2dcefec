package store

import (
	"context"
	"time"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/linolucci78-omnily/loyalty-services/internal/db"

	"go.mongodb.org/mongo-driver/mongo"
)

const scanEventCollection = "scan_events"

// ScanLogStore keeps a short-lived operational trail of scan attempts
// in Mongo. It is diagnostics only; losing it never affects the card
// registry.
type ScanLogStore struct {
	db  *mongo.Database
	ttl time.Duration
}

func NewScanLogStore(mdb *mongo.Database, ttl time.Duration) (*ScanLogStore, error) {
	if err := db.CreateTTLIndexForCollection(mdb, scanEventCollection); err != nil {
		return nil, err
	}

	return &ScanLogStore{db: mdb, ttl: ttl}, nil
}

func (s *ScanLogStore) Record(ctx context.Context, ev models.ScanEvent) error {
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.ExpiresAt = now.Add(s.ttl)

	_, err := s.db.Collection(scanEventCollection).InsertOne(ctx, ev)
	return err
}
