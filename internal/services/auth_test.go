package services

import (
	"context"
	"testing"
	"time"

	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/requestdata"
)

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	userTokenRepo := repos.NewUserTokenRepo(db, log)
	return NewAuthService(db, log, userRepo, userTokenRepo, nil, nil,
		"test-secret", time.Hour, 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}

	access, refresh, user, err := svc.LoginUser(ctx, "carmel1998", "abcdef")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("login returned empty tokens")
	}
	if user.Score != 0 || user.TasksCompleted != 0 {
		t.Fatalf("fresh user has nonzero counters: score=%d tasks=%d", user.Score, user.TasksCompleted)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RegisterUser(ctx, "carmel1998", "Someone Else", "ghijkl", "s@x.com"); err == nil {
		t.Fatalf("duplicate username must be rejected")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name                               string
		username, display, password, email string
	}{
		{name: "empty_username", username: "", display: "D", password: "abcdef", email: "a@b.c"},
		{name: "username_with_space", username: "two words", display: "D", password: "abcdef", email: "a@b.c"},
		{name: "short_password", username: "ok", display: "D", password: "abc", email: "a@b.c"},
		{name: "bad_email", username: "ok", display: "D", password: "abcdef", email: "nothing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.RegisterUser(ctx, tc.username, tc.display, tc.password, tc.email); err == nil {
				t.Fatalf("invalid registration accepted")
			}
		})
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, _, err := svc.LoginUser(ctx, "carmel1998", "wrongpw"); err == nil {
		t.Fatalf("wrong password must be rejected")
	}
	if _, _, _, err := svc.LoginUser(ctx, "ghost", "abcdef"); err == nil {
		t.Fatalf("unknown user must be rejected")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	access, _, _, err := svc.LoginUser(ctx, "carmel1998", "abcdef")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	authedCtx, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("set context: %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.Username != "carmel1998" {
		t.Fatalf("context username: got %+v", rd)
	}

	if _, err := svc.SetContextFromToken(ctx, "not.a.token"); err == nil {
		t.Fatalf("garbage token must be rejected")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	access, refresh, _, err := svc.LoginUser(ctx, "carmel1998", "abcdef")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rdCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  access,
		RefreshToken: refresh,
		Username:     "carmel1998",
	})
	newAccess, newRefresh, err := svc.RefreshUser(rdCtx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if newRefresh == refresh {
		t.Fatalf("refresh token was not rotated")
	}
	if newAccess == "" {
		t.Fatalf("refresh returned empty access token")
	}

	// The old refresh token is gone.
	if _, _, err := svc.RefreshUser(rdCtx); err == nil {
		t.Fatalf("stale refresh token must be rejected")
	}
}

func TestLogoutDeletesToken(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.RegisterUser(ctx, "carmel1998", "Carmel Peretz", "abcdef", "c@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	access, refresh, _, err := svc.LoginUser(ctx, "carmel1998", "abcdef")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	rdCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  access,
		RefreshToken: refresh,
		Username:     "carmel1998",
	})
	if err := svc.LogoutUser(rdCtx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.LogoutUser(rdCtx); err == nil {
		t.Fatalf("second logout with a deleted token must fail")
	}
}
