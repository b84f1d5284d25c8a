package auth

import (
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/example/lessonhub/internal/apperr"
)

const testToken = "123456:TEST-token"

func signedInitData(authDate time.Time, user string) string {
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("query_id", "AAE1")
	if user != "" {
		v.Set("user", user)
	}
	return Sign(testToken, v)
}

func TestValidate(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	v := NewValidator(testToken, Options{MaxAge: 24 * time.Hour, Now: clock})

	tests := []struct {
		name    string
		raw     string
		wantID  int64
		wantErr bool
	}{
		{"valid", signedInitData(now.Add(-time.Hour), `{"id":42,"first_name":"Ann"}`), 42, false},
		{"empty", "", 0, true},
		{"expired", signedInitData(now.Add(-25*time.Hour), `{"id":42}`), 0, true},
		{"no user", signedInitData(now, ""), 0, true},
		{"zero id", signedInitData(now, `{"id":0}`), 0, true},
		{"tampered", signedInitData(now, `{"id":42}`) + "&extra=1", 0, true},
		{"no hash", "auth_date=1&user=%7B%22id%22%3A42%7D", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Validate(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrUnauthorized) {
					t.Fatalf("expected unauthorized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id.UserID != tt.wantID {
				t.Errorf("user id = %d, want %d", id.UserID, tt.wantID)
			}
		})
	}
}

func TestValidateWrongToken(t *testing.T) {
	now := time.Now()
	v := NewValidator("other:token", Options{})
	if _, err := v.Validate(signedInitData(now, `{"id":7}`)); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for foreign token, got %v", err)
	}
}

func TestValidateSkipSignature(t *testing.T) {
	v := NewValidator("", Options{SkipSignature: true})
	id, err := v.Validate("user=" + url.QueryEscape(`{"id":99,"username":"dev"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != 99 || id.Username != "dev" {
		t.Errorf("identity = %+v", id)
	}
}

func TestDataCheckString(t *testing.T) {
	v := url.Values{}
	v.Set("user", "u")
	v.Set("auth_date", "1")
	v.Set("hash", "h")
	if got := DataCheckString(v); got != "auth_date=1\nuser=u" {
		t.Errorf("got %q", got)
	}
}
