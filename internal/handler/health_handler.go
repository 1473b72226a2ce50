package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// HealthChecker は依存先の疎通を確認する。
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc は関数をHealthCheckerとして扱うためのアダプタ。
type CheckFunc func(ctx context.Context) error

// Check はf(ctx)を呼ぶ。
func (f CheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// NamedCheck はログ出力用の名前付きHealthChecker。
type NamedCheck struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	checks []NamedCheck
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checks ...NamedCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// ServeHTTP は全ての依存先が応答すれば200 {"healthy":true}、いずれかが失敗すれば400 {"healthy":false}を返す。
// GET /api/health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.checks {
		if err := c.Checker.Check(r.Context()); err != nil {
			slog.Error("health check failed",
				slog.String("check", c.Name),
				slog.String("error", err.Error()),
			)
			writeJSON(w, http.StatusBadRequest, map[string]bool{"healthy": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}
