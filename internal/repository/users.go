package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/support-me/internal/model"
)

var userFields = []string{
	"id", "full_name", "username", "email", "password_hash", "bio", "profile_picture",
	"cover_picture", "verification_token", "is_verified", "verified_at", "role",
	"customer_id", "amount", "created_at", "updated_at",
}

// userColumns возвращает список колонок пользователя с префиксом таблицы.
func userColumns(alias string) string {
	if alias == "" {
		return strings.Join(userFields, ", ")
	}
	cols := make([]string, len(userFields))
	for i, f := range userFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

// userScanner собирает указатели для Scan и переносит роль в модель после чтения строки.
type userScanner struct {
	u    *model.User
	role string
}

func newUserScanner(u *model.User) *userScanner {
	return &userScanner{u: u}
}

func (s *userScanner) dest() []any {
	u := s.u
	return []any{
		&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &u.ProfilePicture,
		&u.CoverPicture, &u.VerificationToken, &u.IsVerified, &u.VerifiedAt, &s.role,
		&u.CustomerID, &u.Amount, &u.CreatedAt, &u.UpdatedAt,
	}
}

func (s *userScanner) finish() {
	s.u.Role = model.Role(s.role)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	s := newUserScanner(&u)
	if err := row.Scan(s.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.finish()
	return &u, nil
}

// CreateUser создаёт пользователя. Самый первый пользователь становится подтверждённым администратором.
func (r *PostgresRepository) CreateUser(ctx context.Context, nu model.NewUser) (*model.User, error) {
	var created *model.User

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		// Сериализуем регистрации, чтобы администратор был ровно один.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('users.register'))`); err != nil {
			return fmt.Errorf("lock registrations: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
			nu.Username, nu.Email,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}
		if exists {
			return ErrDuplicate
		}

		var total int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		role := model.RoleUser
		token := nu.VerificationToken
		verified := false
		var verifiedAt *time.Time
		if total == 0 {
			now := time.Now().UTC()
			role = model.RoleAdmin
			token = ""
			verified = true
			verifiedAt = &now
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO users (id, full_name, username, email, password_hash, bio, profile_picture,
			                    verification_token, is_verified, verified_at, role)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING `+userColumns(""),
			uuid.NewString(), nu.FullName, nu.Username, nu.Email, nu.PasswordHash, nu.Bio,
			nu.ProfilePicture, token, verified, verifiedAt, string(role),
		)
		u, err := scanUser(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert user: %w", err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetCustomerID сохраняет идентификатор покупателя в платёжном шлюзе.
func (r *PostgresRepository) SetCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET customer_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, customerID,
	)
	if err != nil {
		return fmt.Errorf("set customer id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns("")+` FROM users WHERE id = $1`, id,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, err
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns("")+` FROM users WHERE email = $1`, email,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

// MarkVerified подтверждает email пользователя и сбрасывает токен подтверждения.
func (r *PostgresRepository) MarkVerified(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET is_verified = TRUE, verified_at = NOW(), verification_token = '', updated_at = NOW()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile обновляет профиль пользователя и возвращает новую версию записи.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		 SET full_name = $2, username = $3, email = $4, bio = $5,
		     profile_picture = COALESCE(NULLIF($6, ''), profile_picture),
		     cover_picture = COALESCE(NULLIF($7, ''), cover_picture),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns(""),
		userID, upd.FullName, upd.Username, upd.Email, upd.Bio, upd.ProfilePicture, upd.CoverPicture,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// UsernameOrEmailTaken проверяет, занят ли логин или email другим пользователем.
func (r *PostgresRepository) UsernameOrEmailTaken(ctx context.Context, exceptUserID, username, email string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id <> $1 AND (username = $2 OR email = $3))`,
		exceptUserID, username, email,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check username/email: %w", err)
	}
	return taken, nil
}

// ListUsers возвращает страницу пользователей без администраторов и их общее количество.
func (r *PostgresRepository) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	where := `role <> 'ADMIN'`
	args := []any{}
	if f.Username != "" {
		args = append(args, likePattern(f.Username))
		where += fmt.Sprintf(` AND username ILIKE $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at LIMIT $%d OFFSET $%d`,
			userColumns(""), where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		s := newUserScanner(&u)
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		s.finish()
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return users, total, nil
}
