package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/studylog/internal/db"
	"github.com/example/studylog/internal/internaltypes"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username does not exist, so a
// failed login always costs one bcrypt verification.
var dummyHash = mustHash("studylog-dummy-password")

type Store struct {
	db   *db.DB
	cost int
}

func NewStore(d *db.DB) *Store {
	return &Store{db: d, cost: bcrypt.DefaultCost}
}

func HashPassword(pw string) (string, error) {
	return hashPassword(pw, bcrypt.DefaultCost)
}

func hashPassword(pw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

func mustHash(pw string) string {
	h, err := hashPassword(pw, bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}

// Register creates a user and returns its id. A taken username yields
// internaltypes.ErrDuplicateUsername and leaves the table unchanged.
func (s *Store) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username required", internaltypes.ErrInvalidInput)
	}
	if password == "" {
		return 0, fmt.Errorf("%w: password required", internaltypes.ErrInvalidInput)
	}
	// bcrypt ignores everything past 72 bytes and errors on longer input
	if len(password) > 72 {
		return 0, fmt.Errorf("%w: password must be at most 72 bytes", internaltypes.ErrInvalidInput)
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx, `INSERT INTO users (username, password) VALUES (?, ?) RETURNING id`, username, hash).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, internaltypes.ErrDuplicateUsername
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Authenticate returns the user id for matching credentials. An unknown
// username and a wrong password both yield internaltypes.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var id int64
	var hash string
	err := s.db.QueryRow(ctx, `SELECT id, password FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&id, &hash)
	if err != nil {
		if !db.IsNotFound(err) {
			return 0, db.WrapNotFound(err)
		}
		CheckPassword(dummyHash, password)
		return 0, internaltypes.ErrInvalidCredentials
	}
	if !CheckPassword(hash, password) {
		return 0, internaltypes.ErrInvalidCredentials
	}
	return id, nil
}

func (s *Store) Username(ctx context.Context, userID int64) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = ?`, userID).Scan(&name)
	if err != nil {
		return "", db.WrapNotFound(err)
	}
	return name, nil
}
