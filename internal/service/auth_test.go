package service

import (
	"context"
	"testing"
	"time"

	"github.com/amezhanin/skinstore/internal/model"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
	byID    map[int64]*model.User
	updated map[int64]string
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{
		byEmail: make(map[string]*model.User),
		byID:    make(map[int64]*model.User),
		updated: make(map[int64]string),
	}
	for _, u := range users {
		r.byEmail[u.Email] = u
		r.byID[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.byEmail[email], nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.byID[id], nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	for _, u := range r.byID {
		users = append(users, u)
	}
	return users, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	r.updated[userID] = hash
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: 7, Email: "alice@example.com", PasswordHash: hashFor(t, "hunter2"), Balance: 100}
	svc := NewAuthService(newFakeUserRepo(user), "test-secret", bcrypt.MinCost)

	t.Run("valid credentials yield a token for the user", func(t *testing.T) {
		got, token, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)

		userID, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), userID)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "hunter2")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", bcrypt.MinCost)

	t.Run("token signed with another secret", func(t *testing.T) {
		token := signedToken(t, "other-secret", 1, time.Hour)
		_, err := svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signedToken(t, "test-secret", 1, -time.Hour)
		_, err := svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}

func signedToken(t *testing.T, secret string, userID int64, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	newService := func() (*fakeUserRepo, AuthService) {
		user := &model.User{ID: 3, Email: "bob@example.com", PasswordHash: hashFor(t, "old-pass")}
		repo := newFakeUserRepo(user)
		return repo, NewAuthService(repo, "test-secret", bcrypt.MinCost)
	}

	t.Run("old equals new", func(t *testing.T) {
		_, svc := newService()
		err := svc.ChangePassword(ctx, "bob@example.com", "same", "same")
		require.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, svc := newService()
		err := svc.ChangePassword(ctx, "nobody@example.com", "old-pass", "new-pass")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("old password mismatch", func(t *testing.T) {
		repo, svc := newService()
		err := svc.ChangePassword(ctx, "bob@example.com", "wrong", "new-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Empty(t, repo.updated)
	})

	t.Run("successful change stores a verifiable hash", func(t *testing.T) {
		repo, svc := newService()
		err := svc.ChangePassword(ctx, "bob@example.com", "old-pass", "new-pass")
		require.NoError(t, err)

		hash, ok := repo.updated[3]
		require.True(t, ok)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pass")))
	})
}
