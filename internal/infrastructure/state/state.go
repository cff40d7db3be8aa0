package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LocalState persists the session token and a small app blob across
// process restarts. The token is mirrored into two backends, a SQLite
// database and a JSON sidecar file, so a corrupted write to one still
// leaves a readable copy in the other. Reads prefer SQLite.
type LocalState struct {
	mu  sync.Mutex
	dir string
	db  *sql.DB
}

// AppState is the small persisted UI blob
type AppState struct {
	Theme       string     `json:"theme,omitempty"`
	LastBoardID *uuid.UUID `json:"last_board_id,omitempty"`
}

type sidecar struct {
	Token string `json:"token,omitempty"`
}

const (
	stateFile   = "state.sqlite"
	sidecarFile = "session.json"

	tokenKey    = "session_token"
	appStateKey = "app_state"
)

// Open creates the state directory if needed and opens both backends
func Open(dir string) (*LocalState, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, stateFile))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state db: %w", err)
	}

	return &LocalState{dir: dir, db: db}, nil
}

// Close closes the SQLite backend
func (s *LocalState) Close() error {
	return s.db.Close()
}

// SetToken writes the token to both backends. It fails only when
// neither backend accepted the write.
func (s *LocalState) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbErr := s.kvSet(tokenKey, token)
	fileErr := s.sidecarWrite(sidecar{Token: token})

	if dbErr != nil && fileErr != nil {
		return fmt.Errorf("persist token: %w", errors.Join(dbErr, fileErr))
	}
	return nil
}

// Token returns the persisted token, preferring the SQLite backend
func (s *LocalState) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, err := s.kvGet(tokenKey); err == nil && v != "" {
		return v
	}

	var sc sidecar
	if err := s.sidecarRead(&sc); err == nil {
		return sc.Token
	}
	return ""
}

// VerifyToken re-reads the persisted token and checks it matches.
// Used by the authenticate flow to confirm persistence succeeded.
func (s *LocalState) VerifyToken(token string) error {
	if got := s.Token(); got != token {
		return fmt.Errorf("token persistence verification failed")
	}
	return nil
}

// ClearToken removes the token from both backends
func (s *LocalState) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbErr := s.kvDelete(tokenKey)
	fileErr := s.sidecarWrite(sidecar{})

	if dbErr != nil && fileErr != nil {
		return fmt.Errorf("clear token: %w", errors.Join(dbErr, fileErr))
	}
	return nil
}

// AppState loads the persisted app blob; a missing blob is zero-valued
func (s *LocalState) AppState() (AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st AppState
	v, err := s.kvGet(appStateKey)
	if err != nil || v == "" {
		return st, nil
	}
	if err := json.Unmarshal([]byte(v), &st); err != nil {
		return AppState{}, fmt.Errorf("decode app state: %w", err)
	}
	return st, nil
}

// SaveAppState persists the app blob
func (s *LocalState) SaveAppState(st AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode app state: %w", err)
	}
	return s.kvSet(appStateKey, string(b))
}

func (s *LocalState) kvSet(k, v string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, k, v)
	return err
}

func (s *LocalState) kvGet(k string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, k).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (s *LocalState) kvDelete(k string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, k)
	return err
}

func (s *LocalState) sidecarWrite(sc sidecar) error {
	b, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, sidecarFile+".tmp")
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, sidecarFile))
}

func (s *LocalState) sidecarRead(sc *sidecar) error {
	b, err := os.ReadFile(filepath.Join(s.dir, sidecarFile))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, sc)
}
