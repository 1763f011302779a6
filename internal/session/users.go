package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/observability"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(hashed, plain string) bool
}

type UserStore struct {
	rdb    goredis.UniversalClient
	verify PasswordVerifier
}

func NewUserStore(rdb goredis.UniversalClient, verify PasswordVerifier) *UserStore {
	return &UserStore{rdb: rdb, verify: verify}
}

// CreateUser stores u under its email. The existence check and the write
// run under WATCH so two registrations of one email cannot both succeed.
func (s *UserStore) CreateUser(ctx context.Context, u domain.User) (err error) {
	defer func() { observability.Current().ObserveSessionOp("create_user", err) }()

	email := strings.TrimSpace(u.Email)
	if email == "" || u.HashedPassword == "" {
		return fmt.Errorf("create user: email and password hash are required")
	}
	key := userKey(email)
	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUserExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"email":           email,
				"hashed_password": u.HashedPassword,
				"name":            u.Name,
			})
			return nil
		})
		return err
	}, key)
	if errors.Is(err, goredis.TxFailedErr) {
		return ErrUserExists
	}
	return err
}

func (s *UserStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	fields, err := s.rdb.HGetAll(ctx, userKey(strings.TrimSpace(email))).Result()
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	return &domain.User{
		Email:          fields["email"],
		HashedPassword: fields["hashed_password"],
		Name:           fields["name"],
	}, nil
}

// AuthenticateUser returns the user when the password matches. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserStore) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.GetUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if s.verify == nil || !s.verify.Verify(u.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
