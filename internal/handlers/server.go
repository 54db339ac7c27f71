package handlers

import (
	"log/slog"
	"net/http"

	"fixify-backend/internal/auth"
	"fixify-backend/internal/cache"
	"fixify-backend/internal/config"
	"fixify-backend/internal/db"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/notifications"
	"fixify-backend/internal/validation"
)

type Server struct {
	Cfg           *config.Config
	Cols          *db.Collections
	Val           *validation.Validator
	Log           *slog.Logger
	Cache         cache.Cache
	JWT           *auth.Manager
	Notifications *notifications.Store
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
