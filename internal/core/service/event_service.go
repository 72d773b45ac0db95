package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

type eventService struct {
	repo ports.EventRepository
	log  zerolog.Logger
}

// NewEventService returns an EventService that appends to the audit trail.
func NewEventService(repo ports.EventRepository, log zerolog.Logger) ports.EventService {
	return &eventService{repo: repo, log: log}
}

// Record persists a single lifecycle event.
func (s *eventService) Record(ctx context.Context, ev domain.AccountEvent) error {
	if ev.AccountID == "" || ev.Type == "" {
		return fmt.Errorf("record event: %w: account id and type are required", domain.ErrInvalidInput)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	s.log.Debug().
		Str("account_id", ev.AccountID).
		Str("event", string(ev.Type)).
		Str("actor_id", ev.ActorID).
		Msg("account event recorded")
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.AccountEvent) {}
