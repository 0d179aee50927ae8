package store

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"popcapture/api/database"
	"popcapture/api/models"
	"popcapture/api/utils"
)

// StatsStore mirrors tracked events into ClickHouse for the merchant
// stats API. Postgres stays the source of truth; writes here are
// best-effort and the tracking endpoint never fails because of them.
type StatsStore struct {
	DB *database.ClickHouseClient
}

type EventCountByTime struct {
	Time  time.Time `json:"time"`
	Event *string   `json:"event,omitempty"`
	Count uint64    `json:"count"`
}

type TopPopupResult struct {
	PopupID string `json:"popupId"`
	Count   uint64 `json:"count"`
}

func NewStatsStore(chClient *database.ClickHouseClient) *StatsStore {
	return &StatsStore{DB: chClient}
}

// AppendEvent writes one tracked event to the popup_events table.
func (s *StatsStore) AppendEvent(ctx context.Context, shop string, event *models.AnalyticsEvent) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO popup_events (
			event_id, shop, popup_id, event, session_id, user_agent, referrer, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	err = batch.Append(
		event.EventID,
		shop,
		event.PopupID,
		event.Event,
		event.SessionID,
		event.UserAgent,
		event.Referrer,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// GetEventCountsOverTime buckets a shop's events by interval, optionally
// filtered to one event kind.
func (s *StatsStore) GetEventCountsOverTime(ctx context.Context, shop, interval string, start, end time.Time, eventFilter string) ([]EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{shop, start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) as time_bucket, count() as total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE shop = ? AND timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFiltering := eventFilter != ""

	if isFiltering {
		selectCols += ", event"
		groupByCols += ", event"
		whereClause += " AND event = ?"
		args = append(args, eventFilter)
		orderByCols += ", event ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM popup_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []EventCountByTime
	for rows.Next() {
		var (
			timeBucket time.Time
			count      uint64
			eventDB    string
			result     EventCountByTime
		)

		if isFiltering {
			if err := rows.Scan(&timeBucket, &count, &eventDB); err != nil {
				log.Errorf("Error scanning row for event counts (with event filter): %v", err)
				continue
			}
			result.Event = &eventDB
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				log.Errorf("Error scanning row for event counts: %v", err)
				continue
			}
		}

		result.Time = timeBucket
		result.Count = count
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts query: %w", err)
	}

	return results, nil
}

// GetUniqueSessionsOverTime buckets distinct storefront sessions for a
// shop by interval.
func (s *StatsStore) GetUniqueSessionsOverTime(ctx context.Context, shop, interval string, start, end time.Time) ([]EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, uniq(session_id) AS unique_sessions
		FROM popup_events
		WHERE shop = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, shop, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique sessions over time: %w", err)
	}
	defer rows.Close()

	var results []EventCountByTime
	for rows.Next() {
		var timeBucket time.Time
		var uniqueSessions uint64
		if err := rows.Scan(&timeBucket, &uniqueSessions); err != nil {
			log.Errorf("Error scanning row for unique sessions: %v", err)
			continue
		}
		results = append(results, EventCountByTime{
			Time:  timeBucket,
			Count: uniqueSessions,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during unique sessions query: %w", err)
	}

	return results, nil
}

// GetTopPopups returns a shop's popups ordered by event volume.
func (s *StatsStore) GetTopPopups(ctx context.Context, shop string, start, end time.Time, limit uint64) ([]TopPopupResult, error) {
	query := `
		SELECT popup_id, count() AS total_events
		FROM popup_events
		WHERE shop = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY popup_id
		ORDER BY total_events DESC
		LIMIT ?
	`

	rows, err := s.DB.Conn.Query(ctx, query, shop, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top popups: %w", err)
	}
	defer rows.Close()

	var results []TopPopupResult
	for rows.Next() {
		var r TopPopupResult
		if err := rows.Scan(&r.PopupID, &r.Count); err != nil {
			log.Errorf("Error scanning row for top popups: %v", err)
			continue
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during top popups query: %w", err)
	}

	return results, nil
}
