package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clube-quinze/club-api/internal/domain"
)

// PushTokenRepository manages device registrations.
type PushTokenRepository interface {
	// Upsert binds token to userID and clears any previous invalidation.
	Upsert(ctx context.Context, token *domain.PushToken) error
	ListActiveByUser(ctx context.Context, userID int64) ([]domain.PushToken, error)
	Invalidate(ctx context.Context, id int64, at time.Time) error
	MarkSuccess(ctx context.Context, id int64, at time.Time) error
}

// PushDeliveryRepository stores the outcome of push attempts.
type PushDeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.PushDelivery) error
}

type pushTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPushTokenRepository constructs repository.
func NewPushTokenRepository(pool *pgxpool.Pool) PushTokenRepository {
	return &pushTokenRepository{pool: pool}
}

func (r *pushTokenRepository) Upsert(ctx context.Context, token *domain.PushToken) error {
	const query = `
        INSERT INTO push_tokens (user_id, token, platform)
        VALUES ($1,$2,$3)
        ON CONFLICT (token) DO UPDATE
            SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform,
                invalidated_at=NULL, last_success_at=NULL, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, token.UserID, token.Token, token.Platform).
		Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
}

func (r *pushTokenRepository) ListActiveByUser(ctx context.Context, userID int64) ([]domain.PushToken, error) {
	const query = `
        SELECT id, user_id, token, platform, last_success_at, invalidated_at, created_at, updated_at
        FROM push_tokens
        WHERE user_id=$1 AND invalidated_at IS NULL
        ORDER BY id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.PushToken
	for rows.Next() {
		var token domain.PushToken
		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.Token,
			&token.Platform,
			&token.LastSuccessAt,
			&token.InvalidatedAt,
			&token.CreatedAt,
			&token.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *pushTokenRepository) Invalidate(ctx context.Context, id int64, at time.Time) error {
	return r.touch(ctx, `UPDATE push_tokens SET invalidated_at=$1, updated_at=NOW() WHERE id=$2`, id, at)
}

func (r *pushTokenRepository) MarkSuccess(ctx context.Context, id int64, at time.Time) error {
	return r.touch(ctx, `UPDATE push_tokens SET last_success_at=$1, updated_at=NOW() WHERE id=$2`, id, at)
}

func (r *pushTokenRepository) touch(ctx context.Context, query string, id int64, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type pushDeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewPushDeliveryRepository constructs repository.
func NewPushDeliveryRepository(pool *pgxpool.Pool) PushDeliveryRepository {
	return &pushDeliveryRepository{pool: pool}
}

func (r *pushDeliveryRepository) Create(ctx context.Context, delivery *domain.PushDelivery) error {
	const query = `
        INSERT INTO push_deliveries (token_id, user_id, appointment_id, kind, title, body, data, status, error_message, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		delivery.TokenID,
		delivery.UserID,
		delivery.AppointmentID,
		delivery.Kind,
		delivery.Title,
		delivery.Body,
		delivery.Data,
		delivery.Status,
		delivery.ErrorMessage,
		delivery.SentAt,
	).Scan(&delivery.ID, &delivery.CreatedAt)
}
