package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/boardman/internal/model"
)

// limiterEntry はクライアントごとのレートリミッターと最終アクセス時刻。
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter はクライアント単位のレート制限を管理する。
// 一般APIはユーザーID単位（未認証時はIP単位）、
// 認証エンドポイントはIP単位で制限する。
type RateLimiter struct {
	mu      sync.Mutex
	general map[string]*limiterEntry
	auth    map[string]*limiterEntry

	generalLimit rate.Limit
	generalBurst int
	authLimit    rate.Limit
	authBurst    int

	stopCleanup chan struct{}
}

// NewRateLimiter はレートリミッターを生成する。
// generalRPM, authRPMはそれぞれ1分あたりの許可リクエスト数。
func NewRateLimiter(generalRPM, authRPM int) *RateLimiter {
	rl := &RateLimiter{
		general:      make(map[string]*limiterEntry),
		auth:         make(map[string]*limiterEntry),
		generalLimit: rate.Limit(float64(generalRPM) / 60.0),
		generalBurst: generalRPM,
		authLimit:    rate.Limit(float64(authRPM) / 60.0),
		authBurst:    authRPM,
		stopCleanup:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップgoroutineを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}

// GeneralLimitMiddleware は一般API向けのレート制限ミドルウェアを返す。
// 認証済みならユーザーID、未認証ならクライアントIPをキーにする。
func (rl *RateLimiter) GeneralLimitMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if userID, err := UserIDFromContext(r.Context()); err == nil {
				key = userID
			}

			if !rl.allow(rl.general, key, rl.generalLimit, rl.generalBurst) {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthLimitMiddleware は認証エンドポイント向けのレート制限ミドルウェアを返す。
// ブルートフォース対策としてIP単位で厳しめに制限する。
func (rl *RateLimiter) AuthLimitMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			if !rl.allow(rl.auth, key, rl.authLimit, rl.authBurst) {
				slog.Warn("auth rate limit exceeded",
					slog.String("ip", key),
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// allow は指定キーのリミッターでリクエストを許可するか判定する。
func (rl *RateLimiter) allow(entries map[string]*limiterEntry, key string, limit rate.Limit, burst int) bool {
	rl.mu.Lock()
	entry, ok := entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(limit, burst)}
		entries[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// cleanupLoop は一定時間アクセスのないエントリを定期的に削除する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-30 * time.Minute)
			rl.mu.Lock()
			for key, entry := range rl.general {
				if entry.lastSeen.Before(cutoff) {
					delete(rl.general, key)
				}
			}
			for key, entry := range rl.auth {
				if entry.lastSeen.Before(cutoff) {
					delete(rl.auth, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ClientIP はリクエストからクライアントIPを取り出す。
// リバースプロキシ配下を想定してX-Forwarded-Forを優先する。
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// 複数ある場合は先頭が元のクライアント
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse はレート制限超過レスポンスを書き込む。
func writeRateLimitResponse(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	WriteAPIError(w, model.NewRateLimitError())
}
