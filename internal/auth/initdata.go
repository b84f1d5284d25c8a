// Package auth validates Telegram WebApp init data.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/lessonhub/internal/apperr"
)

// Identity is the Telegram user that signed the init data.
type Identity struct {
	UserID    int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	AuthDate  time.Time `json:"-"`
}

type Validator struct {
	secret        []byte
	maxAge        time.Duration
	skipSignature bool
	now           func() time.Time
}

type Options struct {
	MaxAge        time.Duration
	SkipSignature bool
	Now           func() time.Time
}

func NewValidator(botToken string, opts Options) *Validator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Validator{
		secret:        secretKey(botToken),
		maxAge:        opts.MaxAge,
		skipSignature: opts.SkipSignature,
		now:           opts.Now,
	}
}

// Validate checks the hash and auth_date of raw init data and extracts the user.
func (v *Validator) Validate(raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, fmt.Errorf("init data is empty: %w", apperr.ErrUnauthorized)
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("parse init data: %v: %w", err, apperr.ErrUnauthorized)
	}

	if !v.skipSignature {
		hash := values.Get("hash")
		if hash == "" {
			return Identity{}, fmt.Errorf("init data hash missing: %w", apperr.ErrUnauthorized)
		}
		expected := sign(v.secret, DataCheckString(values))
		got, err := hex.DecodeString(hash)
		if err != nil || !hmac.Equal(got, expected) {
			return Identity{}, fmt.Errorf("init data signature mismatch: %w", apperr.ErrUnauthorized)
		}
	}

	var id Identity
	if ts := values.Get("auth_date"); ts != "" {
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("auth_date %q: %w", ts, apperr.ErrUnauthorized)
		}
		id.AuthDate = time.Unix(sec, 0).UTC()
	} else if !v.skipSignature {
		return Identity{}, fmt.Errorf("auth_date missing: %w", apperr.ErrUnauthorized)
	}
	if v.maxAge > 0 && !id.AuthDate.IsZero() && v.now().Sub(id.AuthDate) > v.maxAge {
		return Identity{}, fmt.Errorf("init data expired: %w", apperr.ErrUnauthorized)
	}

	user := values.Get("user")
	if user == "" {
		return Identity{}, fmt.Errorf("init data has no user: %w", apperr.ErrUnauthorized)
	}
	authDate := id.AuthDate
	if err := json.Unmarshal([]byte(user), &id); err != nil {
		return Identity{}, fmt.Errorf("decode user: %v: %w", err, apperr.ErrUnauthorized)
	}
	id.AuthDate = authDate
	if id.UserID <= 0 {
		return Identity{}, fmt.Errorf("init data user id missing: %w", apperr.ErrUnauthorized)
	}
	return id, nil
}

// DataCheckString joins every field except hash as sorted key=value lines.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

// Sign returns init data for values signed with botToken. Used by tests and tooling.
func Sign(botToken string, values url.Values) string {
	out := url.Values{}
	for k, v := range values {
		out[k] = v
	}
	out.Del("hash")
	out.Set("hash", hex.EncodeToString(sign(secretKey(botToken), DataCheckString(out))))
	return out.Encode()
}

func secretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func sign(secret []byte, data string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
