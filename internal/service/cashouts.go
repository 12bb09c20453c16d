package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/support-me/internal/apperr"
	"github.com/mmeshcher/support-me/internal/metrics"
	"github.com/mmeshcher/support-me/internal/model"
	"github.com/mmeshcher/support-me/internal/repository"
)

// CreateCashout списывает amount отображаемых единиц с баланса создателя и создаёт заявку на вывод.
func (s *Service) CreateCashout(ctx context.Context, userID string, amount int64) (*model.Cashout, error) {
	if amount <= 0 {
		return nil, apperr.ErrInvalidInput
	}
	// баланс хранится в центах int64, больше MaxUnits на нём не поместится
	if amount > model.MaxUnits {
		metrics.CashoutRequestsTotal.WithLabelValues("insufficient_funds").Inc()
		return nil, apperr.ErrInsufficientFunds
	}
	debit := model.UnitsToCents(amount)

	c, err := s.repo.CreateCashout(ctx, userID, debit)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			metrics.CashoutRequestsTotal.WithLabelValues("insufficient_funds").Inc()
			return nil, apperr.ErrInsufficientFunds
		}
		metrics.CashoutRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.CashoutRequestsTotal.WithLabelValues("created").Inc()
	metrics.LedgerDebitedCents.Add(float64(debit))
	s.logger.Info("cashout created",
		zap.String("cashout_id", c.ID),
		zap.String("user_id", userID),
		zap.Int64("debit", debit),
	)
	return c, nil
}

// UpdateCashout меняет статус заявки. Разрешён только переход PENDING -> PAID.
func (s *Service) UpdateCashout(ctx context.Context, id string, status model.CashoutStatus) (*model.Cashout, error) {
	current, err := s.repo.GetCashoutStatus(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrCashoutNotFound
		}
		return nil, err
	}
	if current == model.CashoutStatusPaid {
		return nil, apperr.ErrCashoutPaid
	}
	if !current.CanTransitionTo(status) {
		return nil, apperr.ErrCashoutTransition
	}

	c, err := s.repo.UpdateCashoutStatus(ctx, id, status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.ErrCashoutNotFound
	case errors.Is(err, repository.ErrInvalidTransition):
		// Заявку успели оплатить параллельно.
		return nil, apperr.ErrCashoutPaid
	case err != nil:
		return nil, err
	}

	s.logger.Info("cashout status changed", zap.String("cashout_id", id), zap.String("status", string(c.Status)))
	return c, nil
}

// ListCashouts возвращает страницу заявок на вывод с владельцами.
func (s *Service) ListCashouts(ctx context.Context, f model.CashoutFilter) (model.Result[model.Cashout], error) {
	cashouts, total, err := s.repo.ListCashouts(ctx, f)
	if err != nil {
		return model.Result[model.Cashout]{}, err
	}
	return model.NewResult(cashouts, total, f.Page), nil
}
