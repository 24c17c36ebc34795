// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/placepulse/placepulse/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func testManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{
			name: "valid secret",
			cfg: &config.SecurityConfig{
				JWTSecret:      testSecret,
				SessionTimeout: 24 * time.Hour,
			},
			wantErr: false,
		},
		{
			name: "empty secret",
			cfg: &config.SecurityConfig{
				JWTSecret:      "",
				SessionTimeout: 24 * time.Hour,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("NewJWTManager() unexpected error = %v", err)
				return
			}
			if manager == nil {
				t.Error("NewJWTManager() returned nil manager")
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	manager := testManager(t, time.Hour)

	token, err := manager.GenerateToken("user-42", "ama")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", claims.UserID)
	}
	if claims.Username != "ama" {
		t.Errorf("Username = %q, want ama", claims.Username)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	t.Parallel()

	manager := testManager(t, time.Hour)

	t.Run("garbage", func(t *testing.T) {
		if _, err := manager.ValidateToken("not.a.token"); err == nil {
			t.Error("garbage token accepted")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testManager(t, time.Hour)
		other.secret = []byte("another_equally_long_secret_key_for_the_other_side")
		token, err := other.GenerateToken("user-42", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := manager.ValidateToken(token); err == nil {
			t.Error("token signed with a different secret accepted")
		}
	})

	t.Run("expired", func(t *testing.T) {
		// Negative timeout issues an already-expired token.
		expired := testManager(t, time.Hour)
		expired.timeout = -time.Minute
		token, err := expired.GenerateToken("user-42", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := manager.ValidateToken(token); err == nil {
			t.Error("expired token accepted")
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := manager.GenerateToken("", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := manager.ValidateToken(token); err == nil {
			t.Error("token without user id accepted")
		}
	})
}

func TestTokenFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() *http.Request
		want  string
	}{
		{
			name: "authorization header",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/ws/notifications/", nil)
				r.Header.Set("Authorization", "Bearer header-token")
				return r
			},
			want: "header-token",
		},
		{
			name: "query parameter",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/ws/notifications/?token=query-token", nil)
			},
			want: "query-token",
		},
		{
			name: "cookie",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/ws/notifications/", nil)
				r.AddCookie(&http.Cookie{Name: "placepulse_token", Value: "cookie-token"})
				return r
			},
			want: "cookie-token",
		},
		{
			name: "header wins over query",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/ws/notifications/?token=query-token", nil)
				r.Header.Set("Authorization", "Bearer header-token")
				return r
			},
			want: "header-token",
		},
		{
			name: "absent",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/ws/notifications/", nil)
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenFromRequest(tt.build()); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Error("malformed hash accepted")
	}
}
