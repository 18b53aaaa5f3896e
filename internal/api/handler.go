package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"cafe-board-backend/internal/board"
	"cafe-board-backend/internal/gesture"
	"cafe-board-backend/internal/prep"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    *board.Store
	gestures *gesture.Tracker
	prep     *prep.Tracker
	db       *gorm.DB
	webpush  *webpush.Options
	pageSize int
}

// NewHandler creates a new API handler.
func NewHandler(store *board.Store, gestures *gesture.Tracker, prepTracker *prep.Tracker, db *gorm.DB, webpushOptions *webpush.Options, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Handler{
		store:    store,
		gestures: gestures,
		prep:     prepTracker,
		db:       db,
		webpush:  webpushOptions,
		pageSize: pageSize,
	}
}
