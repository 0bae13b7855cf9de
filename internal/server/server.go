package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/giftvault/ingest/internal/domain"
	"github.com/giftvault/ingest/internal/ingest"
)

// Trigger 是 HTTP 层看到的抓取入口（*ingest.Coordinator 满足该接口）。
type Trigger interface {
	TriggerScrapeAll(ctx context.Context) ingest.TriggerResult
	TriggerScrapeProvider(ctx context.Context, name string) ([]domain.Supplier, error)
}

// SupplierLister 提供已持久化的 Supplier（db.SupplierStore 满足该接口）。
type SupplierLister interface {
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
}

type Options struct {
	// JWTSecret 非空时，/admin 下的路由要求 HS256 签名的 Bearer token。
	JWTSecret      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Handler 持有 HTTP 处理函数的依赖。
type Handler struct {
	trigger   Trigger
	suppliers SupplierLister
	log       *zap.Logger
}

// NewRouter 组装全部路由与中间件。
//
// 路由：
// - GET  /health
// - GET  /suppliers
// - POST /admin/scrape
// - POST /admin/scrape/{provider}
func NewRouter(t Trigger, l SupplierLister, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{trigger: t, suppliers: l, log: log}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/suppliers", h.ListSuppliers)
	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireJWT(opts.JWTSecret))
		r.Post("/scrape", h.ScrapeAll)
		r.Post("/scrape/{provider}", h.ScrapeProvider)
	})
	return r
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSuppliers handles GET /suppliers
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := h.suppliers.ListSuppliers(r.Context())
	if err != nil {
		h.log.Error("list suppliers failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list suppliers")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"suppliers": sups})
}

// ScrapeAll handles POST /admin/scrape
func (h *Handler) ScrapeAll(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.trigger.TriggerScrapeAll(r.Context()))
}

// ScrapeProvider handles POST /admin/scrape/{provider}
func (h *Handler) ScrapeProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	sups, err := h.trigger.TriggerScrapeProvider(r.Context(), name)
	resp := map[string]any{"success": true}
	if err != nil {
		var ue *ingest.UpsertError
		switch {
		case ingest.IsUnknownProvider(err):
			respondError(w, http.StatusNotFound, err.Error())
			return
		case errors.As(err, &ue):
			// 批次已跑完：照常确认，写库失败已经记日志与告警，这里只附带原因。
			h.log.Warn("trigger finished with upsert failure", zap.String("provider", name), zap.Error(err))
			resp["upsert_error"] = err.Error()
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if sups == nil {
		sups = []domain.Supplier{}
	}
	resp["suppliers"] = sups
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// accessLog 用 zap 记录每个请求（替代 chimw.Logger 的标准库输出）。
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(started)),
			)
		})
	}
}
