package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/repository"
)

// StoreActivitySink persists activities to the store and drops failures
// after logging them.
type StoreActivitySink struct {
	store store.Store
	log   logrus.FieldLogger
}

// NewStoreActivitySink creates a sink backed by the activities table.
func NewStoreActivitySink(store store.Store, log logrus.FieldLogger) *StoreActivitySink {
	return &StoreActivitySink{store: store, log: log}
}

// Record stores the activity.
func (a *StoreActivitySink) Record(ctx context.Context, activity domain.Activity) {
	if err := a.store.RecordActivity(ctx, &activity); err != nil {
		a.log.WithFields(logrus.Fields{
			"activity_type": activity.Type,
			"user_id":       activity.UserID,
		}).WithError(err).Warn("failed to record activity")
	}
}

// recordActivity hands an activity to the sink.
func (s *Service) recordActivity(ctx context.Context, userID string, activityType domain.ActivityType, description string, payload interface{}) {
	if s.activity == nil {
		return
	}

	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.log.WithError(err).Warn("failed to marshal activity payload")
		} else {
			payloadBytes = b
		}
	}

	s.activity.Record(ctx, domain.Activity{
		ActivityID:  "act_" + uuid.New().String(),
		UserID:      userID,
		Type:        activityType,
		Description: description,
		Ts:          time.Now().UnixMilli(),
		Payload:     payloadBytes,
	})
}
