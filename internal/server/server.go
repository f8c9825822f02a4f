// Package server exposes the Telegram webhook plus a small operator API
// under /v0 with OpenAPI docs.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"iniciativas/internal/bot"
	"iniciativas/internal/cache"
	"iniciativas/internal/domain"
	"iniciativas/internal/nocodb"
	"iniciativas/internal/telegram"
)

const (
	defaultHandleTimeout = 30 * time.Second
	healthTimeout        = 5 * time.Second
	defaultMaxLimit      = 500
)

// Config for the HTTP handler.
type Config struct {
	Bot      *bot.Engine
	Store    *cache.Store
	Telegram *telegram.Client
	LLMOn    bool
	BasePath string

	// MaxLimit caps the limit query parameter on listings.
	MaxLimit int

	// OpsToken, when set, gates the ops API behind a static bearer token.
	// The webhook, health, and docs endpoints stay open.
	OpsToken string

	// HandleTimeout bounds the background processing of one update.
	HandleTimeout time.Duration
}

type apiErrorBody struct {
	Code    string `json:"code" example:"bad_request"`
	Message string `json:"message" example:"estado no reconocido"`
}

// apiError is the /v0 error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se *nocodb.StatusError
	if errors.As(err, &se) {
		return newAPIError(http.StatusBadGateway, "remote_rejected", err.Error())
	}
	if errors.Is(err, nocodb.ErrUnavailable) {
		return newAPIError(http.StatusGatewayTimeout, "remote_unavailable", err.Error())
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no reconocido") || strings.Contains(msg, "no válido") {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error())
}

// New returns the HTTP handler for the service.
func New(cfg Config) http.Handler {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = defaultHandleTimeout
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(opsAuthMiddleware(basePath, cfg.OpsToken))
	router.Post("/webhook", webhookHandler(cfg))
	router.Get("/health", healthHandler(cfg))
	registerDocs(router, basePath)

	hcfg := huma.DefaultConfig("Iniciativas API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerInitiatives(group, cfg.Store, cfg.MaxLimit)
	registerStats(group, cfg.Store)
	registerCache(group, cfg.Store)
	registerOpenAPI(router, api, basePath)

	return router
}

// opsAuthMiddleware requires a bearer token on the ops API when one is
// configured. The OpenAPI document stays readable so docs keep working.
func opsAuthMiddleware(basePath, token string) func(http.Handler) http.Handler {
	specPath := path.Join(basePath, "openapi.json")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || !strings.HasPrefix(r.URL.Path, basePath+"/") || r.URL.Path == specPath {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{
					"error": apiErrorBody{Code: "unauthorized", Message: "invalid or missing ops token"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			spec, _ = json.Marshal(api.OpenAPI())
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

// webhookHandler acknowledges the chat platform as soon as the update is
// decoded; the reply is produced out-of-band so slow remote calls never
// cause webhook retries.
func webhookHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "ERROR", http.StatusInternalServerError)
			return
		}
		var upd telegram.Update
		if err := json.Unmarshal(body, &upd); err != nil {
			log.Printf("webhook: bad update payload: %v", err)
			http.Error(w, "ERROR", http.StatusInternalServerError)
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HandleTimeout)
			defer cancel()
			cfg.Bot.HandleUpdate(ctx, upd)
		}()
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "OK")
	}
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		status := map[string]any{
			"status": "ok",
			"llm":    cfg.LLMOn,
		}
		if cfg.Telegram != nil {
			if me, err := cfg.Telegram.GetMe(ctx); err == nil {
				status["telegram"] = me.Username
			} else {
				status["status"] = "degraded"
				status["telegram_error"] = err.Error()
			}
		}
		if age, ok := cfg.Store.Age(); ok {
			status["cache_age_seconds"] = int(age.Seconds())
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

type initiativesOut struct {
	Body struct {
		Items  []domain.Initiative `json:"items"`
		Total  int                 `json:"total"`
		Cached bool                `json:"cached"`
	}
}

func registerInitiatives(api huma.API, store *cache.Store, maxLimit int) {
	type listInput struct {
		Limit  int    `query:"limit" minimum:"0"`
		Offset int    `query:"offset" minimum:"0"`
		Status string `query:"status"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-initiatives",
		Method:      http.MethodGet,
		Path:        "/initiatives",
		Summary:     "List initiatives ranked by RICE score",
	}, func(ctx context.Context, input *listInput) (*initiativesOut, error) {
		if input.Limit > maxLimit {
			return nil, newAPIError(http.StatusBadRequest, "bad_request",
				fmt.Sprintf("limit %d exceeds the maximum of %d", input.Limit, maxLimit))
		}
		q := cache.Query{Limit: input.Limit, Offset: input.Offset}
		if input.Status != "" {
			canon, err := domain.CanonicalStatus(input.Status)
			if err != nil {
				return nil, handleError(err)
			}
			q.Statuses = []string{canon}
		}
		res, err := store.List(ctx, q)
		if err != nil {
			return nil, handleError(err)
		}
		out := &initiativesOut{}
		out.Body.Items = domain.Rank(res.Items)
		out.Body.Total = res.Total
		out.Body.Cached = res.Cached
		return out, nil
	})
}

func registerStats(api huma.API, store *cache.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "portfolio-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Portfolio aggregates",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Summary
	}, error) {
		res, err := store.List(ctx, cache.Query{})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Summary
		}{Body: domain.Summarize(res.Items)}, nil
	})
}

func registerCache(api huma.API, store *cache.Store) {
	type ackOut struct {
		Body map[string]string `json:"body"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "cache-clear",
		Method:      http.MethodPost,
		Path:        "/cache/clear",
		Summary:     "Drop the listing snapshot",
	}, func(ctx context.Context, _ *struct{}) (*ackOut, error) {
		store.Clear()
		return &ackOut{Body: map[string]string{"status": "cleared"}}, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "cache-refresh",
		Method:      http.MethodPost,
		Path:        "/cache/refresh",
		Summary:     "Force a fresh fetch into the snapshot",
	}, func(ctx context.Context, _ *struct{}) (*ackOut, error) {
		res, err := store.Refresh(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &ackOut{Body: map[string]string{
			"status": "refreshed",
			"items":  fmt.Sprintf("%d", len(res.Items)),
		}}, nil
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", basePath, "openapi.json")
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Iniciativas API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({ url: %q, dom_id: "#swagger-ui" });
      };
    </script>
  </body>
</html>`, specURL)
}
