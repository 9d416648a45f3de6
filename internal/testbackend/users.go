package testbackend

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-shop-client/users"
	"golang.org/x/crypto/bcrypt"
)

var errUserNotFound = errors.New("user not found")

type userRecord struct {
	user         users.User
	passwordHash string
}

// userRepo holds the backend's accounts keyed by login name (user_id).
type userRepo struct {
	users map[string]*userRecord
	ids   map[string]string // _id to user_id
	lock  sync.RWMutex
}

func newUserRepo() *userRepo {
	return &userRepo{
		users: make(map[string]*userRecord),
		ids:   make(map[string]string),
	}
}

func (r *userRepo) upsert(user users.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.UserID] = &userRecord{user: *user.Clone(), passwordHash: hash}
	r.ids[user.ID] = user.UserID
	return nil
}

// authenticate returns the user when password matches.
func (r *userRepo) authenticate(userID, password string) (*users.User, error) {
	r.lock.RLock()
	rec, ok := r.users[userID]
	r.lock.RUnlock()
	if !ok || !CheckPasswordHash(password, rec.passwordHash) {
		return nil, errUserNotFound
	}
	return rec.user.Clone(), nil
}

func (r *userRepo) getByID(id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	userID, ok := r.ids[id]
	if !ok {
		return nil, errUserNotFound
	}
	return r.users[userID].user.Clone(), nil
}

// HashPassword uses the minimum bcrypt cost; the backend only ever runs in
// tests and demos.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
