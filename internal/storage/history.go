package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/d21d3q/gosml/internal/reading"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	time      INTEGER NOT NULL,
	sensor    TEXT NOT NULL,
	obis      TEXT NOT NULL,
	server_id TEXT NOT NULL,
	meter     TEXT NOT NULL,
	unit      TEXT NOT NULL,
	value     REAL,
	text      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS readings_sensor_time ON readings (sensor, time);
`

// History appends every reading to a SQLite table.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the SQLite database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Append stores r. A zero r.Time is stored as now.
func (h *History) Append(ctx context.Context, r reading.Reading) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var value sql.NullFloat64
	if r.Value != nil {
		value = sql.NullFloat64{Float64: *r.Value, Valid: true}
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO readings (time, sensor, obis, server_id, meter, unit, value, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixMilli(), r.Sensor, r.Code, r.ServerID, r.Meter, r.Unit, value, r.Text,
	)
	if err != nil {
		return fmt.Errorf("append reading %s: %w", r.Sensor, err)
	}
	return nil
}

// Recent returns up to limit readings of sensor, newest first.
func (h *History) Recent(ctx context.Context, sensor string, limit int) ([]reading.Reading, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT time, sensor, obis, server_id, meter, unit, value, text
		FROM readings WHERE sensor = ? ORDER BY time DESC, id DESC LIMIT ?`,
		sensor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []reading.Reading
	for rows.Next() {
		var (
			r     reading.Reading
			ms    int64
			value sql.NullFloat64
		)
		if err := rows.Scan(&ms, &r.Sensor, &r.Code, &r.ServerID, &r.Meter, &r.Unit, &value, &r.Text); err != nil {
			return nil, err
		}
		r.Time = time.UnixMilli(ms)
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *History) Close() error {
	return h.db.Close()
}
