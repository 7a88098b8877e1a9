package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"parcelview/internal/models"
)

var ErrUnknownUser = errors.New("access event references an unknown user")

func (q *Queries) InsertAccessLog(ctx context.Context, event *models.AccessEvent) error {
	location, err := json.Marshal(event.Location)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}
	device, err := json.Marshal(event.DeviceInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal device info: %w", err)
	}

	query := `
		INSERT INTO access_logs (
			id, user_id, email, ip_address, user_agent, event_type,
			success, location, session_id, referrer, device_info, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = q.db.Exec(ctx, query,
		event.ID,
		event.UserID,
		event.Email,
		event.IPAddress,
		event.UserAgent,
		string(event.EventType),
		event.Success,
		location,
		event.SessionID,
		event.Referrer,
		device,
		event.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return ErrUnknownUser
		}
		return err
	}

	return nil
}

// AccessLogFilter narrows ListAccessLogs. Empty fields match everything; Email
// is a case-insensitive substring match.
type AccessLogFilter struct {
	EventType models.EventType
	Email     string
	Limit     int
	Offset    int
}

func (q *Queries) ListAccessLogs(ctx context.Context, filter AccessLogFilter) ([]models.AccessEvent, error) {
	query := `
		SELECT
			id, user_id, email, ip_address, user_agent, event_type,
			success, location, session_id, referrer, device_info, created_at
		FROM access_logs
		WHERE ($1 = '' OR event_type = $1)
		  AND ($2 = '' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`
	rows, err := q.db.Query(ctx, query, string(filter.EventType), filter.Email, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AccessEvent
	for rows.Next() {
		var (
			event     models.AccessEvent
			eventType string
			location  []byte
			device    []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Email,
			&event.IPAddress,
			&event.UserAgent,
			&eventType,
			&event.Success,
			&location,
			&event.SessionID,
			&event.Referrer,
			&device,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		event.EventType = models.EventType(eventType)
		if err := json.Unmarshal(location, &event.Location); err != nil {
			return nil, fmt.Errorf("failed to decode location of %s: %w", event.ID, err)
		}
		if err := json.Unmarshal(device, &event.DeviceInfo); err != nil {
			return nil, fmt.Errorf("failed to decode device info of %s: %w", event.ID, err)
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []models.AccessEvent{}, nil
	}

	return events, nil
}
