package session

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/PentesterFlow/wsprobe/internal/websocket"
)

var (
	bucketSessions = []byte("sessions")
	bucketMessages = []byte("messages")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens (or creates) a BoltDB-backed session store.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMessages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// newID returns a time-ordered session ID, so key order is start order.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func seqKey(seq int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}

// Begin starts a session.
func (s *BoltStore) Begin(endpoint string) (string, error) {
	id, err := newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	sess := &Session{
		ID:        id,
		Endpoint:  endpoint,
		StartedAt: time.Now(),
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := putSession(tx, sess); err != nil {
			return err
		}
		_, err := tx.Bucket(bucketMessages).CreateBucket([]byte(id))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}

	return id, nil
}

// MarkConnected records a successful handshake.
func (s *BoltStore) MarkConnected(id string) error {
	return s.update(id, func(sess *Session) {
		sess.Connected = true
	})
}

// Append records a received message.
func (s *BoltStore) Append(id string, msg websocket.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sess, err := getSession(tx, id)
		if err != nil {
			return err
		}

		b := tx.Bucket(bucketMessages).Bucket([]byte(id))
		if b == nil {
			return fmt.Errorf("session %s has no message bucket", id)
		}
		if err := b.Put(seqKey(msg.Seq), data); err != nil {
			return err
		}

		sess.Messages++
		return putSession(tx, sess)
	})
}

// Finish ends a session.
func (s *BoltStore) Finish(id string, outcome string, cause string) error {
	return s.update(id, func(sess *Session) {
		sess.EndedAt = time.Now()
		sess.Outcome = outcome
		sess.Error = cause
	})
}

// Get returns a session header, or nil if it does not exist.
func (s *BoltStore) Get(id string) (*Session, error) {
	var sess *Session

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return nil // Not found, but not an error
		}
		sess = &Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// List returns all sessions in start order.
func (s *BoltStore) List() ([]*Session, error) {
	sessions := make([]*Session, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("failed to unmarshal session %s: %w", k, err)
			}
			sessions = append(sessions, &sess)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Messages returns a session's messages in receive order.
func (s *BoltStore) Messages(id string) ([]websocket.Message, error) {
	msgs := make([]websocket.Message, 0)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessages).Bucket([]byte(id))
		if b == nil {
			return fmt.Errorf("session %s not found", id)
		}
		return b.ForEach(func(_, v []byte) error {
			var msg websocket.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			msgs = append(msgs, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) update(id string, fn func(*Session)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sess, err := getSession(tx, id)
		if err != nil {
			return err
		}
		fn(sess)
		return putSession(tx, sess)
	})
}

func getSession(tx *bolt.Tx, id string) (*Session, error) {
	data := tx.Bucket(bucketSessions).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func putSession(tx *bolt.Tx, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return tx.Bucket(bucketSessions).Put([]byte(sess.ID), data)
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	messages map[string][]websocket.Message
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		messages: make(map[string][]websocket.Message),
	}
}

// Begin starts a session.
func (s *MemoryStore) Begin(endpoint string) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &Session{
		ID:        id,
		Endpoint:  endpoint,
		StartedAt: time.Now(),
	}
	s.messages[id] = make([]websocket.Message, 0)
	return id, nil
}

// MarkConnected records a successful handshake.
func (s *MemoryStore) MarkConnected(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.Connected = true
	return nil
}

// Append records a received message.
func (s *MemoryStore) Append(id string, msg websocket.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.messages[id] = append(s.messages[id], msg)
	sess.Messages++
	return nil
}

// Finish ends a session.
func (s *MemoryStore) Finish(id string, outcome string, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.EndedAt = time.Now()
	sess.Outcome = outcome
	sess.Error = cause
	return nil
}

// Get returns a copy of a session header, or nil if unknown.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copy := *sess
	return &copy, nil
}

// List returns copies of all sessions in start order.
func (s *MemoryStore) List() ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		copy := *sess
		sessions = append(sessions, &copy)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// Messages returns a session's messages in receive order.
func (s *MemoryStore) Messages(id string) ([]websocket.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	out := make([]websocket.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}
