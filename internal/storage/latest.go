// Package storage persists readings: the last value per sensor in bbolt and
// the full reading history in SQLite.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/d21d3q/gosml/internal/reading"
)

var latestBucket = []byte("latest")

var ErrNotFound = errors.New("storage: no reading stored")

// Latest keeps the most recent reading of every sensor.
type Latest struct {
	db *bolt.DB
}

// OpenLatest opens (or creates) the bbolt file and its bucket.
func OpenLatest(path string) (*Latest, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open latest store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(latestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Latest{db: db}, nil
}

// Put replaces the stored reading of r.Sensor.
func (l *Latest) Put(r reading.Reading) error {
	if r.Sensor == "" {
		return errors.New("storage: reading has no sensor name")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(latestBucket).Put([]byte(r.Sensor), data)
	})
}

// Get returns the last reading stored for sensor.
func (l *Latest) Get(sensor string) (reading.Reading, error) {
	var r reading.Reading
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(latestBucket).Get([]byte(sensor))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, sensor)
		}
		return json.Unmarshal(data, &r)
	})
	return r, err
}

// All returns every stored reading keyed by sensor name.
func (l *Latest) All() (map[string]reading.Reading, error) {
	out := make(map[string]reading.Reading)
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(latestBucket).ForEach(func(k, v []byte) error {
			var r reading.Reading
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			out[string(k)] = r
			return nil
		})
	})
	return out, err
}

func (l *Latest) Close() error {
	return l.db.Close()
}
