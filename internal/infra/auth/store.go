package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrNoSession     = errors.New("no saved session, run `campusface login`")
	ErrNoSecret      = errors.New("auth.session_secret is empty, session cannot be persisted")
	ErrCorruptedFile = errors.New("session file is corrupted or the secret is wrong")
)

var sessionMagic = []byte("CFS1")

const saltSize = 16

// Session - то, что CLI помнит между запусками.
type Session struct {
	Token   string    `json:"token"`
	UserID  string    `json:"user_id"`
	Email   string    `json:"email"`
	SavedAt time.Time `json:"saved_at"`
}

func (s Session) Credential() Credential { return Bearer(s.Token) }

// SessionStore хранит сессию в файле, зашифрованном XChaCha20-Poly1305.
// Ключ выводится из секрета через argon2id, соль лежит в заголовке файла.
type SessionStore struct {
	path   string
	secret []byte
}

func NewSessionStore(path, secret string) (*SessionStore, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	p, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &SessionStore{path: p, secret: []byte(secret)}, nil
}

func (s *SessionStore) Path() string { return s.path }

func (s *SessionStore) Save(sess Session) error {
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now().UTC()
	}
	plain, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("session: salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("session: cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("session: nonce: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(sessionMagic)
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(aead.Seal(nil, nonce, plain, sessionMagic))

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o600)
}

func (s *SessionStore) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("session: read: %w", err)
	}

	nonceSize := chacha20poly1305.NonceSizeX
	header := len(sessionMagic) + saltSize + nonceSize
	if len(data) <= header || !bytes.HasPrefix(data, sessionMagic) {
		return Session{}, ErrCorruptedFile
	}
	salt := data[len(sessionMagic) : len(sessionMagic)+saltSize]
	nonce := data[len(sessionMagic)+saltSize : header]

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return Session{}, fmt.Errorf("session: cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, data[header:], sessionMagic)
	if err != nil {
		return Session{}, ErrCorruptedFile
	}

	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return Session{}, ErrCorruptedFile
	}
	return sess, nil
}

// Clear удаляет файл сессии. Отсутствие файла - не ошибка.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

func (s *SessionStore) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("session: home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
