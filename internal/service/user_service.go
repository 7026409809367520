package service

import (
	"context"
	"errors"
	"fmt"

	"spinify/internal/config"
	"spinify/internal/database"
	"spinify/internal/domain"
	"spinify/internal/events"
	"spinify/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidInterval = errors.New("interval not allowed")
	ErrInvalidPlan     = errors.New("unknown plan")
)

type UserService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	limits   config.LimitsConfig
	logger   *zerolog.Logger
}

func NewUserService(store domain.Store, eventBus domain.EventPublisher, limits config.LimitsConfig, logger *zerolog.Logger) *UserService {
	return &UserService{
		store:    store,
		eventBus: eventBus,
		limits:   limits,
		logger:   logger,
	}
}

// Register upserts the panel user and reports whether the row is new.
func (s *UserService) Register(ctx context.Context, userID int64, username string) (bool, error) {
	_, err := s.store.GetUser(ctx, userID)
	isNew := errors.Is(err, database.ErrUserNotFound)
	if err != nil && !isNew {
		return false, err
	}

	if err := s.store.EnsureUser(ctx, userID, username); err != nil {
		return false, err
	}

	if isNew {
		s.logger.Info().Int64("user_id", userID).Msg("user registered")
		s.publish(events.EventUserRegistered, events.UserEventPayload{UserID: userID, Username: username})
	}

	return isNew, nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}

// SetAdMessage stores the broadcast text. Empty text clears the ad so the
// column goes back to NULL instead of holding an empty string.
func (s *UserService) SetAdMessage(ctx context.Context, userID int64, text string) error {
	if text == "" {
		return s.store.ClearAdMessage(ctx, userID)
	}
	return s.store.SetAdMessage(ctx, userID, text)
}

// SetInterval rejects values outside the allowed posting cadence set.
func (s *UserService) SetInterval(ctx context.Context, userID int64, minutes int) error {
	allowed := s.limits.AllowedIntervals
	if len(allowed) == 0 {
		allowed = models.DefaultAllowedIntervals
	}

	ok := false
	for _, v := range allowed {
		if v == minutes {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %d minutes", ErrInvalidInterval, minutes)
	}

	return s.store.SetInterval(ctx, userID, minutes)
}

func (s *UserService) SetJoined(ctx context.Context, userID int64, joined bool) error {
	return s.store.SetJoined(ctx, userID, joined)
}

func (s *UserService) SetPlan(ctx context.Context, userID int64, plan string) error {
	if !models.ValidPlan(plan) {
		return fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}

	if err := s.store.SetPlan(ctx, userID, plan); err != nil {
		return err
	}

	s.publish(events.EventPlanChanged, events.UserEventPayload{UserID: userID, Plan: plan})
	return nil
}

func (s *UserService) MarkSent(ctx context.Context, userID int64) error {
	return s.store.TouchLastSent(ctx, userID)
}

// DeleteUser removes the user together with their groups and session.
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", userID).Msg("user deleted")
	s.publish(events.EventUserDeleted, events.UserEventPayload{UserID: userID})
	return nil
}

// GroupCap resolves the effective group limit for the user's plan.
func (s *UserService) GroupCap(user *models.User) int {
	if user.Plan == models.PlanPremium {
		if s.limits.PremiumGroupCap > 0 {
			return s.limits.PremiumGroupCap
		}
		return models.PremiumGroupCap
	}
	if s.limits.FreeGroupCap > 0 {
		return s.limits.FreeGroupCap
	}
	return models.FreeGroupCap
}

func (s *UserService) publish(eventType string, payload events.UserEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
