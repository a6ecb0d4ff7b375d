package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"smart-home-bot/internal/domain"
)

// UserDevices returns the devices owned by the user linked to userKey. An
// unlinked key owns nothing.
func (s *Store) UserDevices(ctx context.Context, userKey string) ([]domain.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ud.id, ud.name, ud.device_id, ud.params
		FROM user_devices ud
		JOIN user_sessions us ON us.user_id = ud.user_id
		WHERE us.external_key = ?
		ORDER BY ud.id
	`, userKey)
	if err != nil {
		return nil, fmt.Errorf("querying user devices: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows, true)
}

func (s *Store) Templates(ctx context.Context) ([]domain.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, params FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying device templates: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows, false)
}

func scanDevices(rows *sql.Rows, owned bool) ([]domain.Device, error) {
	var devices []domain.Device
	for rows.Next() {
		var d domain.Device
		var raw string
		var err error
		if owned {
			err = rows.Scan(&d.ID, &d.Name, &d.TemplateID, &raw)
		} else {
			err = rows.Scan(&d.ID, &d.Name, &raw)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}

		params, err := decodeParams(raw)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", d.ID, err)
		}
		d.Params = params
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// UpdateParams overwrites the parameters of one owned device.
func (s *Store) UpdateParams(ctx context.Context, deviceID int64, params map[string]string) error {
	raw, err := encodeParams(params)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE user_devices SET params = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		raw, deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating device %d: %w", deviceID, err)
	}
	return expectOneRow(res, deviceID)
}

// AddOwned registers a device for userID. Nil params default to the template's.
func (s *Store) AddOwned(ctx context.Context, userID int64, device domain.NewDevice) error {
	params := device.Params
	if params == nil {
		var raw string
		err := s.db.QueryRowContext(ctx, `SELECT params FROM devices WHERE id = ?`, device.TemplateID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("template %d: %w", device.TemplateID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading template %d: %w", device.TemplateID, err)
		}
		if params, err = decodeParams(raw); err != nil {
			return fmt.Errorf("template %d: %w", device.TemplateID, err)
		}
	}

	raw, err := encodeParams(params)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_devices (user_id, device_id, name, params) VALUES (?, ?, ?, ?)`,
		userID, device.TemplateID, device.Name, raw,
	); err != nil {
		return fmt.Errorf("adding device %q: %w", device.Name, err)
	}
	return nil
}

func (s *Store) RemoveOwned(ctx context.Context, deviceID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_devices WHERE id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("removing device %d: %w", deviceID, err)
	}
	return expectOneRow(res, deviceID)
}

// SeedTemplates inserts catalog templates whose type is not stored yet and
// reports how many were added.
func (s *Store) SeedTemplates(ctx context.Context, templates []domain.Device) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, t := range templates {
		raw, err := encodeParams(t.Params)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO devices (type, params) VALUES (?, ?) ON CONFLICT(type) DO NOTHING`,
			t.Name, raw,
		)
		if err != nil {
			return 0, fmt.Errorf("seeding template %q: %w", t.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return added, nil
}

func expectOneRow(res sql.Result, deviceID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
	}
	return nil
}

func encodeParams(params map[string]string) (string, error) {
	if params == nil {
		params = map[string]string{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encoding params: %w", err)
	}
	return string(b), nil
}

// decodeParams accepts any JSON scalar values and stores them as strings.
func decodeParams(raw string) (map[string]string, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}
	params := make(map[string]string, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case string:
			params[k] = t
		case nil:
			params[k] = ""
		default:
			params[k] = fmt.Sprint(t)
		}
	}
	return params, nil
}
