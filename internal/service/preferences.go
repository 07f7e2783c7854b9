package service

import (
	"context"
	"fmt"

	"github.com/taleemedge/chatbot/internal/domain"
)

// GetPreferences returns the caller's preferences, creating defaults on first use.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	prefs, err := s.store.GetOrCreatePreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences applies a partial update.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, update domain.PreferencesUpdate) (*domain.Preferences, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	prefs, err := s.store.UpdatePreferences(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return prefs, nil
}
