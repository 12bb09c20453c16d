package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

const cashoutColumns = `c.id, c.amount, c.status, c.user_id, c.created_at, c.updated_at`

type cashoutScanner struct {
	c      *model.Cashout
	status string
}

func (s *cashoutScanner) dest() []any {
	return []any{&s.c.ID, &s.c.Amount, &s.status, &s.c.UserID, &s.c.CreatedAt, &s.c.UpdatedAt}
}

func (s *cashoutScanner) finish() {
	s.c.Status = model.CashoutStatus(s.status)
}

// CreateCashout списывает debit с баланса пользователя и создаёт заявку PENDING.
// Строка пользователя блокируется до конца транзакции, поэтому баланс не уходит в минус.
func (r *PostgresRepository) CreateCashout(ctx context.Context, userID string, debit int64) (*model.Cashout, error) {
	var created model.Cashout

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var balance int64
		err := tx.QueryRow(ctx,
			`SELECT amount FROM users WHERE id = $1 FOR UPDATE`, userID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock user balance: %w", err)
		}

		if balance < debit {
			return ErrInsufficientBalance
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET amount = amount - $2, updated_at = NOW() WHERE id = $1`,
			userID, debit,
		); err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		cs := &cashoutScanner{c: &created}
		err = tx.QueryRow(ctx,
			`INSERT INTO cashouts AS c (id, amount, status, user_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+cashoutColumns,
			uuid.NewString(), debit, string(model.CashoutStatusPending), userID,
		).Scan(cs.dest()...)
		if err != nil {
			return fmt.Errorf("insert cashout: %w", err)
		}
		cs.finish()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCashoutStatus переводит заявку в статус next, если переход допустим.
func (r *PostgresRepository) UpdateCashoutStatus(ctx context.Context, id string, next model.CashoutStatus) (*model.Cashout, error) {
	var updated model.Cashout

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM cashouts WHERE id = $1 FOR UPDATE`, id,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock cashout: %w", err)
		}

		if !model.CashoutStatus(status).CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		cs := &cashoutScanner{c: &updated}
		err = tx.QueryRow(ctx,
			`UPDATE cashouts AS c SET status = $2, updated_at = NOW()
			 WHERE c.id = $1
			 RETURNING `+cashoutColumns,
			id, string(next),
		).Scan(cs.dest()...)
		if err != nil {
			return fmt.Errorf("update cashout: %w", err)
		}
		cs.finish()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetCashoutStatus возвращает текущий статус заявки.
func (r *PostgresRepository) GetCashoutStatus(ctx context.Context, id string) (model.CashoutStatus, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM cashouts WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get cashout: %w", err)
	}
	return model.CashoutStatus(status), nil
}

// ListCashouts возвращает страницу заявок на вывод с владельцами и их общее количество.
func (r *PostgresRepository) ListCashouts(ctx context.Context, f model.CashoutFilter) ([]model.Cashout, int, error) {
	where := `TRUE`
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(` AND c.user_id = $%d`, len(args))
	}
	if f.Username != "" {
		args = append(args, likePattern(f.Username))
		where += fmt.Sprintf(` AND u.username ILIKE $%d`, len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cashouts c JOIN users u ON u.id = c.user_id WHERE `+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count cashouts: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, %s
		 FROM cashouts c JOIN users u ON u.id = c.user_id
		 WHERE %s
		 ORDER BY c.created_at DESC
		 LIMIT $%d OFFSET $%d`,
			cashoutColumns, userColumns("u"), where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select cashouts: %w", err)
	}
	defer rows.Close()

	var res []model.Cashout
	for rows.Next() {
		var (
			c model.Cashout
			u model.User
		)
		cs := &cashoutScanner{c: &c}
		us := newUserScanner(&u)
		if err := rows.Scan(append(cs.dest(), us.dest()...)...); err != nil {
			return nil, 0, fmt.Errorf("scan cashout: %w", err)
		}
		cs.finish()
		us.finish()
		c.User = &u
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}
