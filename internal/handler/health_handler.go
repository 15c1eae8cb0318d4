package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
)

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// GET /health
// データベース接続を確認し、疎通できない場合は503を返す。
func NewHealthHandler(db *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:   "error",
				Database: "disconnected",
			})
			return
		}

		writeJSON(w, http.StatusOK, healthResponse{
			Status:   "ok",
			Database: "connected",
		})
	})
}
