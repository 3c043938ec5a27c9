package http

import (
	"net/http"

	"assessment-service/internal/metrics"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

var (
	corsHeaders = handlers.AllowedHeaders([]string{"Authorization", "Content-Type"})
	corsOrigins = handlers.AllowedOrigins([]string{"*"})
	corsMethods = handlers.AllowedMethods([]string{"GET", "POST", "PUT", "HEAD", "OPTIONS", "DELETE"})
)

// NewRouter mounts the REST API under /api, the attempt websocket on /ws,
// and the health and metrics endpoints.
func NewRouter(api *APIServer, ws *WSHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	// the websocket route stays outside the metrics middleware, which cannot hijack
	r.HandleFunc("/ws", ws.ServeWS)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(metrics.Middleware)
	api.SetupRoutes(apiRouter)

	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.CORS(corsHeaders, corsOrigins, corsMethods)(recovered)
}
