package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
)

// CreateCreatorRequest создаёт заявку на роль создателя. У пользователя может быть только одна заявка.
func (s *Service) CreateCreatorRequest(ctx context.Context, userID, explanation string) (*model.CreatorRequest, error) {
	req, err := s.repo.CreateCreatorRequest(ctx, userID, explanation)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrCreatorRequestExists
		}
		return nil, err
	}
	return req, nil
}

// ListCreatorRequests возвращает страницу заявок для администратора.
func (s *Service) ListCreatorRequests(ctx context.Context, f model.CreatorRequestFilter) (model.Result[model.CreatorRequest], error) {
	reqs, total, err := s.repo.ListCreatorRequests(ctx, f)
	if err != nil {
		return model.Result[model.CreatorRequest]{}, err
	}
	return model.NewResult(reqs, total, f.Page), nil
}

// DecideCreatorRequest принимает или отклоняет заявку. Принятие выдаёт пользователю роль CREATOR.
func (s *Service) DecideCreatorRequest(ctx context.Context, id string, status model.CreatorRequestStatus) (*model.CreatorRequest, error) {
	if !status.Terminal() {
		return nil, apperr.ErrInvalidInput
	}

	req, err := s.repo.DecideCreatorRequest(ctx, id, status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.ErrCreatorRequestNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return nil, apperr.ErrCreatorRequestDecided
	case err != nil:
		return nil, err
	}

	s.logger.Info("creator request decided",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.String("status", string(req.Status)),
	)
	return req, nil
}

// WithdrawCreatorRequest удаляет собственную заявку, пока она не рассмотрена.
func (s *Service) WithdrawCreatorRequest(ctx context.Context, id, userID string) error {
	err := s.repo.DeleteCreatorRequest(ctx, id, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ErrCreatorRequestNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperr.ErrCreatorRequestDecided
	}
	return err
}
