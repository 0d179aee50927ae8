package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"popcapture/api/models"
)

// ErrPopupNotFound is returned when a tracked event references a popup
// that does not exist (or no longer exists) at write time.
var ErrPopupNotFound = errors.New("popup not found")

type PopupStore struct {
	DB *sql.DB
}

func NewPopupStore(db *sql.DB) *PopupStore {
	return &PopupStore{DB: db}
}

// GetActivePopups returns the active popups for a shop, oldest first.
func (s *PopupStore) GetActivePopups(ctx context.Context, shop string) ([]models.Popup, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, shop, trigger_type, trigger_value, heading,
		       COALESCE(description, ''), button_text, COALESCE(discount_code, ''),
		       is_active, views, conversions, created_at, updated_at
		FROM popups
		WHERE shop = $1 AND is_active = TRUE
		ORDER BY created_at ASC
	`, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to query active popups: %w", err)
	}
	defer rows.Close()

	var popups []models.Popup
	for rows.Next() {
		var p models.Popup
		if err := rows.Scan(
			&p.ID, &p.Shop, &p.TriggerType, &p.TriggerValue, &p.Heading,
			&p.Description, &p.ButtonText, &p.DiscountCode,
			&p.IsActive, &p.Views, &p.Conversions, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan popup row: %w", err)
		}
		popups = append(popups, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during active popups query: %w", err)
	}

	return popups, nil
}

// GetPopup fetches a popup by ID regardless of active state.
func (s *PopupStore) GetPopup(ctx context.Context, id string) (*models.Popup, error) {
	var p models.Popup
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, shop, trigger_type, trigger_value, heading,
		       COALESCE(description, ''), button_text, COALESCE(discount_code, ''),
		       is_active, views, conversions, created_at, updated_at
		FROM popups
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Shop, &p.TriggerType, &p.TriggerValue, &p.Heading,
		&p.Description, &p.ButtonText, &p.DiscountCode,
		&p.IsActive, &p.Views, &p.Conversions, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPopupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query popup %s: %w", id, err)
	}
	return &p, nil
}

// RecordEvent persists a tracked event in a single transaction: verify
// the popup exists, append the analytics row, bump the matching counter
// (close events bump nothing), and capture the subscriber email on
// conversions. The event timestamp is assigned here, not by the client.
// The owning shop is returned alongside the event for downstream sinks.
func (s *PopupStore) RecordEvent(ctx context.Context, req models.TrackRequest) (*models.AnalyticsEvent, string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var shop string
	err = tx.QueryRowContext(ctx, `SELECT shop FROM popups WHERE id = $1`, req.PopupID).Scan(&shop)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrPopupNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to check popup existence: %w", err)
	}

	event := &models.AnalyticsEvent{
		EventID:   uuid.New().String(),
		PopupID:   req.PopupID,
		Event:     req.Event,
		SessionID: req.SessionID,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO popup_analytics (event_id, popup_id, event, session_id, user_agent, referrer, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`, event.EventID, event.PopupID, event.Event, event.SessionID, event.UserAgent, event.Referrer, event.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to insert analytics event: %w", err)
	}

	switch req.Event {
	case models.EventView:
		_, err = tx.ExecContext(ctx, `UPDATE popups SET views = views + 1, updated_at = NOW() WHERE id = $1`, req.PopupID)
	case models.EventConversion:
		_, err = tx.ExecContext(ctx, `UPDATE popups SET conversions = conversions + 1, updated_at = NOW() WHERE id = $1`, req.PopupID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to update popup counters: %w", err)
	}

	if req.Event == models.EventConversion && req.Email != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO popup_subscribers (popup_id, email, session_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, req.PopupID, req.Email, req.SessionID, event.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("failed to insert subscriber: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit tracked event: %w", err)
	}

	return event, shop, nil
}
