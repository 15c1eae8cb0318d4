package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/boardman/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, name, password_hash, avatar, created_at FROM users WHERE id = $1`,
		id,
	)
}

// FindByName は指定名のユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByName(ctx context.Context, name string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, name, password_hash, avatar, created_at FROM users WHERE name = $1`,
		name,
	)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Name, &user.PasswordHash, &avatar, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.Avatar = avatar.String
	return user, nil
}

// Create はユーザーを作成する。
// name一意制約に違反した場合はDUPLICATE_USERのAPIErrorを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var avatar sql.NullString
	if user.Avatar != "" {
		avatar = sql.NullString{String: user.Avatar, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, password_hash, avatar, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.PasswordHash, avatar, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.NewDuplicateUserError()
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
