package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/platform/apierr"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/session"
)

const DefaultAccessTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// UserRepo is the subset of session.UserStore the auth service needs.
type UserRepo interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, email string) (*domain.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error)
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserName    string `json:"user_name"`
}

type JWTClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	log       *logger.Logger
	users     UserRepo
	hasher    Hasher
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewService(log *logger.Logger, users UserRepo, hasher Hasher, cfg config.AuthConfig) (*Service, error) {
	serviceLog := log.With("service", "AuthService")
	secret := []byte(strings.TrimSpace(cfg.JWTSecret))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		serviceLog.Warn("JWT_SECRET_KEY is not set; using an ephemeral secret, tokens will not survive a restart")
	}
	ttl := cfg.AccessTTL.Duration
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Service{
		log:       serviceLog,
		users:     users,
		hasher:    hasher,
		secret:    secret,
		accessTTL: ttl,
		now:       time.Now,
	}, nil
}

func (s *Service) Register(ctx context.Context, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return apierr.BadRequest("invalid_registration", errors.New("email and password are required"))
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.CreateUser(ctx, domain.User{Email: email, HashedPassword: hashed, Name: strings.TrimSpace(name)})
	if errors.Is(err, session.ErrUserExists) {
		return apierr.BadRequest("email_taken", errors.New("Email already registered"))
	}
	if err != nil {
		return err
	}
	s.log.Info("User registered", "user_id", email)
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.AuthenticateUser(ctx, strings.TrimSpace(email), password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		return nil, apierr.Unauthorized("invalid_credentials", errors.New("Incorrect email or password"))
	}
	if err != nil {
		return nil, err
	}
	tok, err := s.generateAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: tok, TokenType: "bearer", UserName: u.Name}, nil
}

func (s *Service) generateAccessToken(u *domain.User) (string, error) {
	now := s.now()
	claims := JWTClaims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates an access token and returns its subject, the user's email.
func (s *Service) ParseToken(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// Hasher hashes and verifies passwords. It satisfies session.PasswordVerifier.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hashed, plain string) bool
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
