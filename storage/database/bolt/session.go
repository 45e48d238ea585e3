package boltdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
)

var currentSessionKey = []byte("current")

type storedSession struct {
	User       user.User          `json:"user"`
	Credential session.Credential `json:"credential"`
}

// SessionStore persists the session in the store file so it survives restarts.
// A session whose credential has expired reads as no session.
type SessionStore struct {
	db  *DB
	now func() time.Time
}

var _ session.Resolver = (*SessionStore)(nil) // interface compliance check

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: core.NowFunc}
}

func (s *SessionStore) load(ctx context.Context) (*storedSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.bolt.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionBucket).Get(currentSessionKey); v != nil {
			raw = copyBytes(v)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, errors.Wrap(err, "reading session")
	}
	var ss storedSession
	if err = json.Unmarshal(raw, &ss); err != nil {
		return nil, errors.Wrap(err, "decoding session")
	}
	if ss.Credential.Expired(s.now()) {
		return nil, nil
	}
	return &ss, nil
}

func (s *SessionStore) CurrentUser(ctx context.Context) (*user.User, error) {
	ss, err := s.load(ctx)
	if err != nil || ss == nil {
		return nil, err
	}
	return &ss.User, nil
}

func (s *SessionStore) Token(ctx context.Context) (string, error) {
	ss, err := s.load(ctx)
	if err != nil || ss == nil {
		return "", err
	}
	return ss.Credential.Token, nil
}

func (s *SessionStore) Establish(ctx context.Context, usr user.User, cred session.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(storedSession{User: usr.Public(), Credential: cred})
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	err = s.db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(currentSessionKey, raw)
	})
	return errors.Wrap(err, "saving session")
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete(currentSessionKey)
	})
	return errors.Wrap(err, "clearing session")
}
