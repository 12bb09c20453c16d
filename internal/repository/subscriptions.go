package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

const subscriptionColumns = `s.id, s.title, s.description, s.price, s.image, s.product_id, s.user_id, s.created_at, s.updated_at`

func subscriptionDest(s *model.Subscription) []any {
	return []any{&s.ID, &s.Title, &s.Description, &s.Price, &s.Image, &s.ProductID, &s.UserID, &s.CreatedAt, &s.UpdatedAt}
}

func scanSubscriptionWithUser(row pgx.Row) (*model.Subscription, error) {
	var (
		s model.Subscription
		u model.User
	)
	us := newUserScanner(&u)
	if err := row.Scan(append(subscriptionDest(&s), us.dest()...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	us.finish()
	s.User = &u
	return &s, nil
}

// CountSubscriptions возвращает количество планов создателя.
func (r *PostgresRepository) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

// CreateSubscription сохраняет новый план. Лимит планов проверяется под блокировкой строки владельца,
// поэтому параллельные запросы не могут его превысить.
func (r *PostgresRepository) CreateSubscription(ctx context.Context, s model.Subscription) (*model.Subscription, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	var created model.Subscription
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, s.UserID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, s.UserID).Scan(&n); err != nil {
			return fmt.Errorf("count subscriptions: %w", err)
		}
		if n >= model.MaxSubscriptionsPerCreator {
			return ErrLimitReached
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO subscriptions AS s (id, title, description, price, image, product_id, user_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+subscriptionColumns,
			s.ID, s.Title, s.Description, s.Price, s.Image, s.ProductID, s.UserID,
		).Scan(subscriptionDest(&created)...)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetSubscription возвращает план вместе с владельцем.
func (r *PostgresRepository) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	s, err := scanSubscriptionWithUser(r.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`, `+userColumns("u")+`
		 FROM subscriptions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = $1`, id,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return s, err
}

// GetOwnedSubscription возвращает план, только если он принадлежит ownerID.
func (r *PostgresRepository) GetOwnedSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions s WHERE s.id = $1 AND s.user_id = $2`,
		id, ownerID,
	).Scan(subscriptionDest(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get owned subscription: %w", err)
	}
	return &s, nil
}

// UpdateSubscription обновляет название, описание и, если передана, картинку плана владельца.
func (r *PostgresRepository) UpdateSubscription(ctx context.Context, id, ownerID, title, description, image string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.pool.QueryRow(ctx,
		`UPDATE subscriptions AS s
		 SET title = $3, description = $4, image = COALESCE(NULLIF($5, ''), s.image), updated_at = NOW()
		 WHERE s.id = $1 AND s.user_id = $2
		 RETURNING `+subscriptionColumns,
		id, ownerID, title, description, image,
	).Scan(subscriptionDest(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return &s, nil
}

// ListSubscriptions возвращает страницу каталога с владельцами и общее количество планов.
func (r *PostgresRepository) ListSubscriptions(ctx context.Context, f model.SubscriptionFilter) ([]model.Subscription, int, error) {
	where := `TRUE`
	args := []any{}
	if f.Username != "" {
		args = append(args, likePattern(f.Username))
		where += fmt.Sprintf(` AND u.username ILIKE $%d`, len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions s JOIN users u ON u.id = s.user_id WHERE `+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, %s
		 FROM subscriptions s JOIN users u ON u.id = s.user_id
		 WHERE %s
		 ORDER BY s.created_at
		 LIMIT $%d OFFSET $%d`,
			subscriptionColumns, userColumns("u"), where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var res []model.Subscription
	for rows.Next() {
		s, err := scanSubscriptionWithUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan subscription: %w", err)
		}
		res = append(res, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// DeleteSubscription в одной транзакции переводит все покупки плана в EXPIRED и удаляет план.
// Возвращает удалённый план и идентификаторы подписок в платёжном шлюзе, которые нужно отменить.
func (r *PostgresRepository) DeleteSubscription(ctx context.Context, id, ownerID string) (*model.Subscription, []string, error) {
	var (
		deleted   model.Subscription
		stripeIDs []string
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		stripeIDs = stripeIDs[:0]

		err := tx.QueryRow(ctx,
			`SELECT `+subscriptionColumns+` FROM subscriptions s WHERE s.id = $1 AND s.user_id = $2 FOR UPDATE`,
			id, ownerID,
		).Scan(subscriptionDest(&deleted)...)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock subscription: %w", err)
		}

		rows, err := tx.Query(ctx,
			`UPDATE purchases SET status = $2, updated_at = NOW()
			 WHERE subscription_id = $1 AND status <> $2
			 RETURNING stripe_subscription_id`,
			id, string(model.PurchaseStatusExpired),
		)
		if err != nil {
			return fmt.Errorf("expire purchases: %w", err)
		}
		for rows.Next() {
			var sid string
			if err := rows.Scan(&sid); err != nil {
				rows.Close()
				return fmt.Errorf("scan purchase: %w", err)
			}
			stripeIDs = append(stripeIDs, sid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &deleted, stripeIDs, nil
}
