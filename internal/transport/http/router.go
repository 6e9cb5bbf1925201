package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler        *Handler
	WS             http.HandlerFunc
	Ready          func(ctx context.Context) error
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// websocket
	r.Get("/ws", d.WS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				httputil.Error(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		httputil.OK(w, map[string]string{"status": "ready"})
	})

	r.Route("/api/workspaces/{id}", func(wr chi.Router) {
		wr.Use(middleware.Compress(5))
		wr.Use(middleware.Timeout(30 * time.Second))
		wr.Get("/", d.Handler.GetWorkspace)
		wr.Put("/", d.Handler.RenameWorkspace)
		wr.Delete("/", d.Handler.DeleteWorkspace)
		wr.Post("/save", d.Handler.SaveWorkspace)
	})

	return r
}
