package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewIssuer_RequiresKey(t *testing.T) {
	if _, err := NewIssuer("", time.Minute); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
	iss, err := NewIssuer("k", 0)
	if err != nil || iss.ttl != time.Hour {
		t.Fatalf("default ttl not applied: %v %v", iss, err)
	}
}

func TestIssueAndParse(t *testing.T) {
	iss, _ := NewIssuer("s3cret", 10*time.Minute)
	raw, exp, err := iss.Issue("42", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	c, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Subject != "42" || c.Role != "admin" || c.Issuer != tokenIssuer {
		t.Fatalf("claims = %+v", c)
	}
}

func TestParse_Rejects(t *testing.T) {
	iss, _ := NewIssuer("s3cret", time.Minute)
	other, _ := NewIssuer("different", time.Minute)
	foreign, _, _ := other.Issue("1", "admin")

	expired, _ := NewIssuer("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.Issue("1", "admin")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, raw := range map[string]string{
		"garbage":   "not-a-jwt",
		"wrong key": foreign,
		"expired":   old,
		"alg none":  unsigned,
		"truncated": strings.TrimSuffix(foreign, foreign[len(foreign)-4:]),
	} {
		if _, err := iss.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
