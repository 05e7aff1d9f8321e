package service

import (
	"context"

	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	log  *zap.Logger
	repo repository.Repository
	enq  Enqueuer
}

func NewService(repo repository.Repository, enq Enqueuer, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
		enq:  enq,
	}
}

// notify publishes a change notification after a mutating operation.
// Publishing is best effort: a broker hiccup never fails the operation.
func (s *Service) notify(topic string, n model.Notification) {
	if s.enq == nil {
		return
	}
	if err := s.enq.Enqueue(topic, n); err != nil {
		s.log.Warn("notify", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Service) RecordActivity(ctx context.Context, entry model.ActivityEntry) error {
	return s.repo.AppendActivity(ctx, entry)
}

func (s *Service) ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	return s.repo.ListActivity(ctx, limit)
}
