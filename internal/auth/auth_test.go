package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/apierr"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/session"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hasher := BcryptHasher{Cost: 4}
	svc, err := NewService(logger.NewNop(), session.NewUserStore(rdb, hasher), hasher, config.AuthConfig{
		JWTSecret: secret,
		AccessTTL: config.D(time.Hour),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterLoginParse(t *testing.T) {
	svc := newTestService(t, "test-secret")
	ctx := context.Background()

	if err := svc.Register(ctx, "ana@example.com", "pw", "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	tok, err := svc.Login(ctx, "ana@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.TokenType != "bearer" || tok.UserName != "Ana" || tok.AccessToken == "" {
		t.Fatalf("token=%+v", tok)
	}
	sub, err := svc.ParseToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if sub != "ana@example.com" {
		t.Fatalf("subject=%q", sub)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, "s")
	ctx := context.Background()
	if err := svc.Register(ctx, "ana@example.com", "pw", "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := svc.Register(ctx, "ana@example.com", "other", "Ana 2")
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusBadRequest || ae.Code != "email_taken" {
		t.Fatalf("err=%v want 400 email_taken", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(t, "s")
	ctx := context.Background()
	if err := svc.Register(ctx, "ana@example.com", "pw", "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for _, tc := range []struct{ email, pw string }{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "pw"},
	} {
		_, err := svc.Login(ctx, tc.email, tc.pw)
		ae, ok := apierr.As(err)
		if !ok || ae.Status != http.StatusUnauthorized {
			t.Fatalf("Login(%s): err=%v want 401", tc.email, err)
		}
	}
}

func TestParseTokenRejects(t *testing.T) {
	svc := newTestService(t, "s")
	ctx := context.Background()
	if err := svc.Register(ctx, "ana@example.com", "pw", "Ana"); err != nil {
		t.Fatal(err)
	}
	tok, err := svc.Login(ctx, "ana@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}

	other := newTestService(t, "different")
	if _, err := other.ParseToken(tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: err=%v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.ParseToken(tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: err=%v", err)
	}
	if _, err := svc.ParseToken(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty: err=%v", err)
	}
}

func TestEphemeralSecret(t *testing.T) {
	svc := newTestService(t, "")
	if len(svc.secret) != 32 {
		t.Fatalf("secret length=%d", len(svc.secret))
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hashed, err := h.Hash("pw")
	if err != nil {
		t.Fatal(err)
	}
	if !h.Verify(hashed, "pw") || h.Verify(hashed, "nope") {
		t.Fatalf("Verify mismatch")
	}
}
