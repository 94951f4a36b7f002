package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/domain/auth"
	"rentory/internal/infrastructure/storage/postgres"
)

const refreshTokensTable = "sys_refresh_tokens"

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTokenRepo creates a new refresh token repository.
func NewTokenRepo(txManager *postgres.TxManager) *TokenRepo {
	return &TokenRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ auth.TokenRepository = (*TokenRepo)(nil)

// SaveRefreshToken stores a new refresh token.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := r.builder.Insert(refreshTokensTable).Columns(
		"id", "user_id", "token_hash", "expires_at", "created_at",
	).Values(
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by its hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	q := r.builder.Select(
		"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at",
	).From(refreshTokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var token auth.RefreshToken
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &token, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh token", tokenHash)
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

// RevokeRefreshToken marks one token revoked.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	return r.revoke(ctx, squirrel.Eq{"id": tokenID}, reason)
}

// RevokeAllUserTokens marks all of a user's tokens revoked.
func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	return r.revoke(ctx, squirrel.Eq{"user_id": userID}, reason)
}

func (r *TokenRepo) revoke(ctx context.Context, cond squirrel.Eq, reason string) error {
	q := r.builder.Update(refreshTokensTable).
		Set("revoked_at", time.Now().UTC()).
		Set("revoke_reason", reason).
		Where(cond).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build revoke: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}
