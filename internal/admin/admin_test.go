package admin

import (
	"testing"
	"time"

	"github.com/dropfall/backend/internal/config"
	"github.com/dropfall/backend/internal/models"
)

func TestVerifyAdminToken(t *testing.T) {
	hash, err := HashAdminToken("s3cret-token")
	if err != nil {
		t.Fatalf("HashAdminToken: %v", err)
	}
	if !VerifyAdminToken(hash, "s3cret-token") {
		t.Error("correct token rejected")
	}
	if VerifyAdminToken(hash, "wrong") {
		t.Error("wrong token accepted")
	}
	if VerifyAdminToken("not-a-hash", "s3cret-token") {
		t.Error("malformed hash accepted")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, exp, err := IssueSessionToken("secret", "ops", []string{"scenes"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry = %v", exp)
	}

	s, err := ParseSessionToken("secret", tok)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if s.Username != "ops" || len(s.Roles) != 1 || s.Roles[0] != "scenes" {
		t.Errorf("session = %+v", s)
	}
	if s.ExpiresAt.Unix() != exp.Unix() {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, exp)
	}
}

func TestParseSessionTokenRejects(t *testing.T) {
	tok, _, _ := IssueSessionToken("secret", "ops", nil, time.Hour)
	if _, err := ParseSessionToken("other", tok); err != ErrInvalidSession {
		t.Errorf("wrong secret: err = %v", err)
	}

	expired, _, _ := IssueSessionToken("secret", "ops", nil, -time.Minute)
	if _, err := ParseSessionToken("secret", expired); err != ErrInvalidSession {
		t.Errorf("expired: err = %v", err)
	}

	if _, err := ParseSessionToken("secret", "garbage"); err != ErrInvalidSession {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestSessionHasRole(t *testing.T) {
	if !(Session{}).HasRole("config") {
		t.Error("role-less session should have full access")
	}
	s := Session{Roles: []string{"viewer"}}
	if s.HasRole("config") {
		t.Error("viewer granted config")
	}
	if !(Session{Roles: []string{"superadmin"}}).HasRole("config") {
		t.Error("superadmin denied")
	}
}

func TestApplyRuntimeConfig(t *testing.T) {
	cfg := &config.Config{DropIntervalMs: 200, MinDropSize: 3, Gravity: 0.15, MaxSpeed: 8, FrameRateHz: 60}
	n := ApplyRuntimeConfig([]models.RuntimeConfig{
		{Key: "drop_interval_ms", Value: "50"},
		{Key: "min_drop_size", Value: "4.5"},
		{Key: "gravity", Value: "abc"},
		{Key: "max_speed", Value: "-1"},
		{Key: "frame_rate_hz", Value: "30"},
		{Key: "unknown", Value: "1"},
	}, cfg)

	if n != 3 {
		t.Errorf("applied = %d, want 3", n)
	}
	if cfg.DropIntervalMs != 50 || cfg.MinDropSize != 4.5 || cfg.FrameRateHz != 30 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Gravity != 0.15 || cfg.MaxSpeed != 8 {
		t.Errorf("invalid values applied: gravity=%v max_speed=%v", cfg.Gravity, cfg.MaxSpeed)
	}
}

func TestValidateRuntimeValue(t *testing.T) {
	cases := []struct {
		typ, value string
		ok         bool
	}{
		{"int", "200", true},
		{"int", "0", false},
		{"int", "1.5", false},
		{"float", "0.15", true},
		{"float", "-2", false},
		{"bool", "true", true},
		{"bool", "yes", false},
	}
	for _, tc := range cases {
		err := ValidateRuntimeValue(tc.typ, tc.value)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateRuntimeValue(%s, %q) = %v, want ok=%v", tc.typ, tc.value, err, tc.ok)
		}
	}
}

func TestLogAdminActionWithoutDB(t *testing.T) {
	if err := LogAdminAction(nil, "ops", "127.0.0.1", "/x", "noop", nil, true); err != nil {
		t.Errorf("err = %v", err)
	}
}
