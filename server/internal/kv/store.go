package kv

import (
	"bytes"
	"encoding/gob"
	"errors"
	"log/slog"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"

	bolt "go.etcd.io/bbolt"
)

var (
	bucket     = []byte("session")
	sessionKey = []byte("last")
)

// Store persists the last session URL in bolt.
type Store struct {
	db *bolt.DB
}

func NewStore(db *bolt.DB) (*Store, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Persist the session url
func (s *Store) Persist(url string) error {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(Session{URL: url, SavedAt: time.Now()}); err != nil {
		return errors.Join(errors.New("failed to persist session"), err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(sessionKey, buf.Bytes())
	})
}

// Restore a persisted session. A missing session is not an error.
func (s *Store) Restore() (Session, error) {
	var sess Session

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(sessionKey)
		if v == nil {
			return nil
		}
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&sess)
	})
	if err != nil {
		return Session{}, errors.Join(errors.New("failed to restore session"), err)
	}

	return sess, nil
}

// EventListener persists every URL change published by the controller.
func (s *Store) EventListener(bus EventBus.Bus) error {
	return bus.SubscribeAsync(session.TopicURL, func(url string) {
		if err := s.Persist(url); err != nil {
			slog.Error("failed to persist session", slog.Any("err", err))
		}
	}, true)
}
