package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fixify-backend/internal/httpx"
	"fixify-backend/internal/middleware"
	"fixify-backend/internal/models"
	"fixify-backend/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// notificationScope picks the collection and filter for the caller.
// Admins read the shared admin feed; everyone else reads their own.
func (s *Server) notificationScope(r *http.Request) (*mongo.Collection, bson.M, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, nil, false
	}
	if claims.Role == models.RoleAdmin {
		return s.Cols.AdminNotifications, bson.M{}, true
	}
	return s.Cols.Notifications, bson.M{"recipientId": claims.UserID}, true
}

func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	col, filter, ok := s.notificationScope(r)
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 50, 200)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid pagination", nil)
		return
	}
	if r.URL.Query().Get("unread") == "true" {
		filter["isRead"] = false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		log.Error("notifications list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := []models.Notification{}
	for cursor.Next(ctx) {
		var n models.Notification
		if err := cursor.Decode(&n); err != nil {
			continue
		}
		items = append(items, n)
	}
	if err := cursor.Err(); err != nil {
		log.Error("notifications list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	unread, err := col.CountDocuments(ctx, withUnread(filter))
	if err != nil {
		unread = 0
	}

	transport.WriteSuccess(w, http.StatusOK, "", map[string]interface{}{
		"notifications": items,
		"unreadCount":   unread,
	})
}

func withUnread(filter bson.M) bson.M {
	out := bson.M{"isRead": false}
	for k, v := range filter {
		if k != "isRead" {
			out[k] = v
		}
	}
	return out
}

func (s *Server) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	col, filter, ok := s.notificationScope(r)
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}
	filter["_id"] = id

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		log.Error("notifications read: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "notification not found", nil)
		return
	}

	transport.WriteSuccess(w, http.StatusOK, "notification marked as read", nil)
}

func (s *Server) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	col, filter, ok := s.notificationScope(r)
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}
	filter["_id"] = id

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := col.DeleteOne(ctx, filter)
	if err != nil {
		log.Error("notifications delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "notification not found", nil)
		return
	}

	transport.WriteSuccess(w, http.StatusOK, "notification deleted", nil)
}
