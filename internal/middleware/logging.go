package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder はレスポンスのステータスコードを記録するためのラッパー。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMetricsRecorder はHTTPリクエストのメトリクスを記録するインターフェース。
type HTTPMetricsRecorder interface {
	RecordHTTPStatus(method, path string, status int)
	RecordRequestDuration(method, path string, duration time.Duration)
}

// NewLoggingMiddleware はリクエストログとメトリクスを記録するミドルウェアを返す。
// recorderはnilでもよい（メトリクス記録をスキップする）。
func NewLoggingMiddleware(recorder HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
			}

			// ステータスコードに応じてログレベルを変える
			switch {
			case rec.status >= 500:
				slog.Error("HTTP request", attrs...)
			case rec.status >= 400:
				slog.Warn("HTTP request", attrs...)
			default:
				slog.Info("HTTP request", attrs...)
			}

			if recorder != nil {
				recorder.RecordHTTPStatus(r.Method, r.URL.Path, rec.status)
				recorder.RecordRequestDuration(r.Method, r.URL.Path, duration)
			}
		})
	}
}
