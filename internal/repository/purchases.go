package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

const purchaseColumns = `id, stripe_subscription_id, status, user_id, subscription_id, created_at, updated_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	var (
		p      model.Purchase
		status string
	)
	err := row.Scan(&p.ID, &p.StripeSubscriptionID, &status, &p.UserID, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Status = model.PurchaseStatus(status)
	return &p, nil
}

// GetPurchase возвращает последнюю покупку плана subscriptionID пользователем buyerID.
func (r *PostgresRepository) GetPurchase(ctx context.Context, buyerID, subscriptionID string) (*model.Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases
		 WHERE user_id = $1 AND subscription_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		buyerID, subscriptionID,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, err
}

// recordEvent отмечает событие шлюза как применённое. Повтор возвращает ErrEventProcessed.
func recordEvent(ctx context.Context, tx pgx.Tx, eventID, eventType string) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO webhook_events (id, type) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventProcessed
	}
	return nil
}

// creditOwner начисляет владельцу плана его цену и возвращает начисленную сумму.
func creditOwner(ctx context.Context, tx pgx.Tx, subscriptionID string) (int64, error) {
	var (
		ownerID string
		price   int64
	)
	err := tx.QueryRow(ctx,
		`SELECT user_id, price FROM subscriptions WHERE id = $1`, subscriptionID,
	).Scan(&ownerID, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get subscription price: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET amount = amount + $2, updated_at = NOW() WHERE id = $1`,
		ownerID, price,
	); err != nil {
		return 0, fmt.Errorf("credit owner: %w", err)
	}
	return price, nil
}

// RecordPurchase создаёт активную покупку и начисляет владельцу плана его цену.
// Событие, покупка и начисление фиксируются одной транзакцией.
func (r *PostgresRepository) RecordPurchase(ctx context.Context, eventID, eventType string, p model.Purchase) (int64, error) {
	var credited int64

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := recordEvent(ctx, tx, eventID, eventType); err != nil {
			return err
		}

		if p.SubscriptionID == nil {
			return ErrNotFound
		}
		amount, err := creditOwner(ctx, tx, *p.SubscriptionID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO purchases (id, stripe_subscription_id, status, user_id, subscription_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), p.StripeSubscriptionID, string(model.PurchaseStatusActive), p.UserID, p.SubscriptionID,
		); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert purchase: %w", err)
		}

		credited = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// CreditRenewal повторно начисляет владельцу цену плана при продлении подписки.
func (r *PostgresRepository) CreditRenewal(ctx context.Context, eventID, eventType, buyerID, subscriptionID string) (int64, error) {
	var credited int64

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := recordEvent(ctx, tx, eventID, eventType); err != nil {
			return err
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND subscription_id = $2)`,
			buyerID, subscriptionID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check purchase: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		amount, err := creditOwner(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		credited = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return credited, nil
}

// SetPurchaseStatus меняет статус покупки, только если текущий статус равен from.
func (r *PostgresRepository) SetPurchaseStatus(ctx context.Context, eventID, eventType, stripeSubscriptionID string, from, to model.PurchaseStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := recordEvent(ctx, tx, eventID, eventType); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE purchases SET status = $3, updated_at = NOW()
			 WHERE stripe_subscription_id = $1 AND status = $2`,
			stripeSubscriptionID, string(from), string(to),
		)
		if err != nil {
			return fmt.Errorf("update purchase status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
}
