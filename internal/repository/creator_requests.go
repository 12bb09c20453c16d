package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

const creatorRequestColumns = `cr.id, cr.explanation, cr.status, cr.user_id, cr.created_at, cr.updated_at`

// scanCreatorRequestWithUser читает заявку вместе с данными пользователя (JOIN users u).
func scanCreatorRequestWithUser(row pgx.Row) (*model.CreatorRequest, error) {
	var (
		cr     model.CreatorRequest
		status string
		u      model.User
	)
	us := newUserScanner(&u)
	dest := append([]any{&cr.ID, &cr.Explanation, &status, &cr.UserID, &cr.CreatedAt, &cr.UpdatedAt}, us.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	us.finish()
	cr.Status = model.CreatorRequestStatus(status)
	cr.User = &u
	return &cr, nil
}

// CreateCreatorRequest создаёт заявку пользователя на роль создателя. У пользователя может быть только одна заявка.
func (r *PostgresRepository) CreateCreatorRequest(ctx context.Context, userID, explanation string) (*model.CreatorRequest, error) {
	var (
		cr     model.CreatorRequest
		status string
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO creator_requests (id, explanation, status, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, explanation, status, user_id, created_at, updated_at`,
		uuid.NewString(), explanation, string(model.CreatorRequestStatusPending), userID,
	).Scan(&cr.ID, &cr.Explanation, &status, &cr.UserID, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert creator request: %w", err)
	}
	cr.Status = model.CreatorRequestStatus(status)
	return &cr, nil
}

// ListCreatorRequests возвращает страницу заявок с данными авторов и их общее количество.
func (r *PostgresRepository) ListCreatorRequests(ctx context.Context, f model.CreatorRequestFilter) ([]model.CreatorRequest, int, error) {
	where := `TRUE`
	args := []any{}
	if f.Username != "" {
		args = append(args, likePattern(f.Username))
		where += fmt.Sprintf(` AND u.username ILIKE $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(` AND cr.status = $%d`, len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM creator_requests cr JOIN users u ON u.id = cr.user_id WHERE `+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count creator requests: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, %s
		 FROM creator_requests cr JOIN users u ON u.id = cr.user_id
		 WHERE %s
		 ORDER BY cr.created_at
		 LIMIT $%d OFFSET $%d`,
			creatorRequestColumns, userColumns("u"), where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select creator requests: %w", err)
	}
	defer rows.Close()

	var res []model.CreatorRequest
	for rows.Next() {
		cr, err := scanCreatorRequestWithUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan creator request: %w", err)
		}
		res = append(res, *cr)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// DecideCreatorRequest переводит заявку из PENDING в ACCEPTED или REJECTED.
// При одобрении роль автора заявки меняется на CREATOR в той же транзакции.
func (r *PostgresRepository) DecideCreatorRequest(ctx context.Context, id string, next model.CreatorRequestStatus) (*model.CreatorRequest, error) {
	var decided *model.CreatorRequest

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var (
			status string
			userID string
		)
		err := tx.QueryRow(ctx,
			`SELECT status, user_id FROM creator_requests WHERE id = $1 FOR UPDATE`, id,
		).Scan(&status, &userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock creator request: %w", err)
		}

		if !model.CreatorRequestStatus(status).CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx,
			`UPDATE creator_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
			id, string(next),
		); err != nil {
			return fmt.Errorf("update creator request: %w", err)
		}

		if next == model.CreatorRequestStatusAccepted {
			if _, err := tx.Exec(ctx,
				`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
				userID, string(model.RoleCreator),
			); err != nil {
				return fmt.Errorf("promote user: %w", err)
			}
		}

		cr, err := scanCreatorRequestWithUser(tx.QueryRow(ctx,
			`SELECT `+creatorRequestColumns+`, `+userColumns("u")+`
			 FROM creator_requests cr JOIN users u ON u.id = cr.user_id
			 WHERE cr.id = $1`, id,
		))
		if err != nil {
			return fmt.Errorf("reload creator request: %w", err)
		}
		decided = cr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// DeleteCreatorRequest удаляет ещё не рассмотренную заявку её автора.
func (r *PostgresRepository) DeleteCreatorRequest(ctx context.Context, id, userID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM creator_requests WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock creator request: %w", err)
		}

		if model.CreatorRequestStatus(status).Terminal() {
			return ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx, `DELETE FROM creator_requests WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete creator request: %w", err)
		}
		return nil
	})
}
