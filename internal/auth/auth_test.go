package auth

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(state1) {
		t.Errorf("GenerateState() = %q, want 32 lowercase hex chars", state1)
	}

	state2, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	if state1 == state2 {
		t.Error("GenerateState() returned same value twice")
	}
}

func TestBuildBasicAuth(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"ascii", "client-id", "client-secret"},
		{"colon in secret", "id", "se:cret"},
		{"non-ascii", "clïent", "sëcret"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := BuildBasicAuth(tt.id, tt.secret)

			encoded, ok := strings.CutPrefix(header, "Basic ")
			if !ok {
				t.Fatalf("BuildBasicAuth() = %q, want Basic prefix", header)
			}

			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				t.Fatalf("decoding credentials: %v", err)
			}

			if want := tt.id + ":" + tt.secret; string(decoded) != want {
				t.Errorf("decoded = %q, want %q", decoded, want)
			}
		})
	}
}

func TestExpiryTimestamp(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	if got := ExpiryTimestamp(now, time.Hour); got != 1_700_003_600_000 {
		t.Errorf("ExpiryTimestamp() = %d, want %d", got, int64(1_700_003_600_000))
	}
}

func TestAccessToken_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		expires int64
		want    bool
	}{
		{"future", now.Add(time.Minute).UnixMilli(), false},
		{"past", now.Add(-time.Minute).UnixMilli(), true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := AccessToken{Token: "a", Expires: tt.expires}
			if got := tok.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyState(t *testing.T) {
	tests := []struct {
		name        string
		got, stored string
		wantErr     bool
	}{
		{"match", "abc123", "abc123", false},
		{"mismatch", "abc123", "abc124", true},
		{"prefix", "abc", "abc123", true},
		{"empty got", "", "abc123", true},
		{"empty stored", "abc123", "", true},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyState(tt.got, tt.stored)
			if tt.wantErr && !errors.Is(err, ErrStateMismatch) {
				t.Errorf("VerifyState(%q, %q) = %v, want ErrStateMismatch", tt.got, tt.stored, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("VerifyState(%q, %q) = %v, want nil", tt.got, tt.stored, err)
			}
		})
	}
}
