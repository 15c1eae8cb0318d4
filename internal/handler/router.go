package handler

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/boardman/internal/metrics"
	"github.com/hitoshi/boardman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	HTTPMetrics       middleware.HTTPMetricsRecorder // nil許容

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface

	// ヘルスチェック
	DB *sql.DB

	// メトリクス公開（nilの場合は/metricsを公開しない）
	MetricsGatherer prometheus.Gatherer

	// アバター画像の配信元ディレクトリ
	UploadDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS
//
// 状態変更を伴う投稿ルートにはさらに Auth → RateLimit(General) → CSRF を適用する。
// 認証ルート（/api/auth/*）はCSRF検証の外に置き、
// 代わりにIP単位の認証用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.HTTPMetrics))
	r.Use(middleware.NewCORSMiddleware(middleware.CORSConfig{
		AllowedOrigin: deps.CORSAllowedOrigin,
	}))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	csrfMiddleware := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 認証不要のルート ---

	// 登録・ログイン（IP単位のレート制限付き）
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthLimitMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 投稿一覧は未ログインでも閲覧できる
	r.With(csrfMiddleware).Get("/api/posts", postHandler.List)

	// ヘルスチェック
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.DB))

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// アバター画像の静的配信
	if deps.UploadDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Method(http.MethodGet, "/uploads/*", fileServer)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → CSRF
	// レート制限はユーザーID単位でかけるため認証の後に置く。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralLimitMiddleware())
		r.Use(csrfMiddleware)

		r.Post("/api/posts", postHandler.Create)
		r.Delete("/api/posts/{id}", postHandler.Delete)
	})

	return r
}
