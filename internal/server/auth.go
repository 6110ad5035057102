package server

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUser registers a new account. Both fields are required and the
// username must be unused. The password is stored as a bcrypt hash.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, &ValidationError{Msg: "username and password are required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &StorageError{Op: "hash password", Err: err}
	}

	var existing User
	err = s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, &ConflictError{Msg: "username already taken"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &StorageError{Op: "check username", Err: err}
	}

	user := &User{
		Username:     username,
		PasswordHash: string(hash),
	}

	timer := s.dbTimer("insert", user.TableName())
	err = s.db.WithContext(ctx).Create(user).Error
	if timer != nil {
		timer.ObserveDuration()
	}
	s.observeDB("insert", user.TableName(), err)
	if err != nil {
		// The unique index on username turns racing duplicate inserts
		// into exactly one surviving row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Msg: "username already taken"}
		}
		s.logger.Error("failed to create user", "username", username, "error", err)
		return nil, &StorageError{Op: "create user", Err: err}
	}

	s.logger.Info("user registered", "username", username)

	return user, nil
}

// Authenticate verifies a username/password pair. A missing user and a
// wrong password both produce the same AuthError so the response does not
// reveal which usernames exist.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, &AuthError{Msg: "invalid username or password"}
	}

	var user User
	timer := s.dbTimer("select", user.TableName())
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if timer != nil {
		timer.ObserveDuration()
	}
	s.observeDB("select", user.TableName(), err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &AuthError{Msg: "invalid username or password"}
		}
		s.logger.Error("failed to fetch user", "username", username, "error", err)
		return nil, &StorageError{Op: "fetch user", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &AuthError{Msg: "invalid username or password"}
	}

	return &user, nil
}
