package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/boardman/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// ListWithAuthors は全投稿を投稿者情報付きで新しい順に取得する。
func (r *PostgresPostRepo) ListWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.message, p.created_at, u.name, u.avatar
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC, p.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []model.PostWithAuthor{}
	for rows.Next() {
		var p model.PostWithAuthor
		var avatar sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Message, &p.CreatedAt, &p.Author.Name, &avatar); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		p.Author.ID = p.UserID
		p.Author.Avatar = avatar.String
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, message, created_at FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.UserID, &post.Message, &post.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, message, created_at)
		 VALUES ($1, $2, $3, $4)`,
		post.ID, post.UserID, post.Message, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

// DeleteByIDAndOwner は指定IDかつ指定所有者の投稿を削除し、削除行数を返す。
// 所有権は削除時点のDB状態で評価される（所有権のキャッシュは行わない）。
func (r *PostgresPostRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
