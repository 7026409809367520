package service

import (
	"context"
	"errors"

	"spinify/internal/config"
	"spinify/internal/database"
	"spinify/internal/domain"
	"spinify/internal/events"
	"spinify/internal/models"

	"github.com/rs/zerolog"
)

type GroupService struct {
	store    domain.Store
	users    *UserService
	eventBus domain.EventPublisher
	limits   config.LimitsConfig
	logger   *zerolog.Logger
}

func NewGroupService(store domain.Store, users *UserService, eventBus domain.EventPublisher, limits config.LimitsConfig, logger *zerolog.Logger) *GroupService {
	return &GroupService{
		store:    store,
		users:    users,
		eventBus: eventBus,
		limits:   limits,
		logger:   logger,
	}
}

// BatchResult reports the outcome of a bulk link submission.
type BatchResult struct {
	Saved   []string      `json:"saved"`
	Evicted []string      `json:"evicted,omitempty"`
	Skipped []SkippedLink `json:"skipped,omitempty"`
	Ignored int           `json:"ignored,omitempty"`
}

type SkippedLink struct {
	Link   string `json:"link"`
	Reason string `json:"reason"`
}

func (s *GroupService) batchLimit() int {
	if s.limits.GroupBatchLimit > 0 {
		return s.limits.GroupBatchLimit
	}
	return models.GroupBatchLimit
}

// AddGroup normalizes and stores a single target link for the user.
// When the user is at their plan cap the oldest links are displaced to
// make room and returned as the second value; a shrunken cap (plan
// downgrade) can displace more than one.
func (s *GroupService) AddGroup(ctx context.Context, userID int64, rawLink string) (string, []string, error) {
	link, err := NormalizeGroupLink(rawLink)
	if err != nil {
		return "", nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	evicted, err := s.store.AddGroup(ctx, userID, link, s.users.GroupCap(user))
	if err != nil {
		return "", nil, err
	}

	s.publish(events.EventGroupAdded, events.UserEventPayload{UserID: userID, GroupLink: link})
	for _, old := range evicted {
		s.logger.Info().Int64("user_id", userID).Str("link", old).Msg("group evicted to stay under cap")
		s.publish(events.EventGroupEvicted, events.UserEventPayload{UserID: userID, GroupLink: old})
	}

	return link, evicted, nil
}

// AddGroups processes a pasted batch of links. Links beyond the batch
// limit are ignored and counted; bad or duplicate links are skipped
// with a reason instead of failing the whole batch.
func (s *GroupService) AddGroups(ctx context.Context, userID int64, rawLinks []string) (*BatchResult, error) {
	result := &BatchResult{}

	picked := rawLinks
	if limit := s.batchLimit(); len(picked) > limit {
		result.Ignored = len(picked) - limit
		picked = picked[:limit]
	}

	for _, raw := range picked {
		link, evicted, err := s.AddGroup(ctx, userID, raw)
		switch {
		case errors.Is(err, ErrInvalidGroupLink):
			result.Skipped = append(result.Skipped, SkippedLink{Link: raw, Reason: "invalid link"})
		case errors.Is(err, database.ErrDuplicateGroup):
			result.Skipped = append(result.Skipped, SkippedLink{Link: raw, Reason: "already added"})
		case err != nil:
			return nil, err
		default:
			result.Saved = append(result.Saved, link)
			result.Evicted = append(result.Evicted, evicted...)
		}
	}

	return result, nil
}

func (s *GroupService) ListGroups(ctx context.Context, userID int64) ([]*models.UserGroup, error) {
	return s.store.ListGroups(ctx, userID)
}

func (s *GroupService) RemoveGroup(ctx context.Context, userID int64, rawLink string) error {
	link, err := NormalizeGroupLink(rawLink)
	if err != nil {
		return err
	}

	if err := s.store.RemoveGroup(ctx, userID, link); err != nil {
		return err
	}

	s.publish(events.EventGroupRemoved, events.UserEventPayload{UserID: userID, GroupLink: link})
	return nil
}

func (s *GroupService) ClearGroups(ctx context.Context, userID int64) error {
	return s.store.ClearGroups(ctx, userID)
}

func (s *GroupService) publish(eventType string, payload events.UserEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
