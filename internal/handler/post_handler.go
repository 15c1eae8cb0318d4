package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context) ([]model.PostWithAuthor, error)
	Create(ctx context.Context, userID, message string) (*model.PostWithAuthor, error)
	Delete(ctx context.Context, userID, postID string) error
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

// postResponse は投稿1件のAPIレスポンス。
type postResponse struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	CreatedAt string           `json:"createdAt"`
	User      model.PublicUser `json:"user"`
}

// List は全投稿を新しい順に返す。認証不要。
// GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postResponse, len(posts))
	for i, p := range posts {
		results[i] = toPostResponse(&p)
	}
	writeJSON(w, http.StatusOK, results)
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Message string `json:"message"`
}

// Create は認証済みユーザーの投稿を作成する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディのJSONが不正です"))
		return
	}

	post, err := h.service.Create(r.Context(), userID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// Delete は認証済みユーザー自身の投稿を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "投稿を削除しました。",
	})
}

// toPostResponse はドメインのPostWithAuthorをAPIレスポンスに変換する。
func toPostResponse(p *model.PostWithAuthor) postResponse {
	return postResponse{
		ID:        p.ID,
		Message:   p.Message,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		User:      p.Author,
	}
}
