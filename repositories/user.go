//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"convo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, fullName, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	Resolve(userID string) (bool, error)
}

// User is the repository-layer representation of an account. The delivery
// engine itself only ever consumes the opaque ID.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

type diskUser struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FullName      string   `json:"full_name"`
	PasswordHash  string   `json:"password_hash"`
	Roles         []string `json:"roles"`
	CreatedAtUnix int64    `json:"created_at"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userEmailKey(email string) []byte {
	return []byte("user:email:" + email)
}

func userIDKey(id string) []byte {
	return []byte("user:id:" + id)
}

// CreateUser persists an account and returns the generated ID. The id->email
// index written alongside lets the engine resolve member ids on conversation
// creation without scanning.
func (u *UserRepository) CreateUser(email, fullName, hashedPassword string) (string, error) {
	newID := uuid.New().String()
	data, err := encode(diskUser{
		ID:            newID,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hashedPassword,
		Roles:         []string{"user"},
		CreatedAtUnix: time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userEmailKey(email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(userIDKey(newID), []byte(email))
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &du)
		})
	})
	if err != nil {
		return User{}, err
	}
	return toUser(du), nil
}

// Resolve reports whether userID names a known account.
func (u *UserRepository) Resolve(userID string) (bool, error) {
	exists := false
	err := u.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userIDKey(userID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func toUser(du diskUser) User {
	return User{
		ID:           du.ID,
		Email:        du.Email,
		FullName:     du.FullName,
		PasswordHash: du.PasswordHash,
		Roles:        du.Roles,
		CreatedAt:    time.Unix(du.CreatedAtUnix, 0).UTC(),
	}
}
