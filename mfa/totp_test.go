package mfa

import (
	"strings"
	"testing"
	"time"
)

// RFC 4226 appendix D vectors, secret "12345678901234567890".
func TestHOTPReferenceVectors(t *testing.T) {
	secret := []byte("12345678901234567890")
	expected := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, want := range expected {
		got, err := hotpCode(secret, int64(counter), 6, "SHA1")
		if err != nil {
			t.Fatalf("counter %d: %v", counter, err)
		}
		if got != want {
			t.Fatalf("counter %d: got %s, want %s", counter, got, want)
		}
	}
}

// RFC 6238 appendix B vectors, 8 digits, zero skew.
func TestTOTPReferenceVectors(t *testing.T) {
	cases := []struct {
		algorithm string
		secret    string
		unix      int64
		code      string
	}{
		{"SHA1", "12345678901234567890", 59, "94287082"},
		{"SHA1", "12345678901234567890", 1111111109, "07081804"},
		{"SHA1", "12345678901234567890", 1234567890, "89005924"},
		{"SHA1", "12345678901234567890", 20000000000, "65353130"},
		{"SHA256", "12345678901234567890123456789012", 59, "46119246"},
		{"SHA256", "12345678901234567890123456789012", 1111111109, "68084774"},
		{"SHA512", strings.Repeat("1234567890", 6) + "1234", 59, "90693936"},
		{"SHA512", strings.Repeat("1234567890", 6) + "1234", 1111111109, "25091201"},
	}

	for _, tc := range cases {
		verifier := NewTOTPVerifier(TOTPConfig{Digits: 8, Period: 30, Skew: 0, Algorithm: tc.algorithm})
		ok, err := verifier.VerifyCode([]byte(tc.secret), tc.code, time.Unix(tc.unix, 0))
		if err != nil {
			t.Fatalf("%s@%d: %v", tc.algorithm, tc.unix, err)
		}
		if !ok {
			t.Fatalf("%s@%d: code %s rejected", tc.algorithm, tc.unix, tc.code)
		}
	}
}

func TestVerifyCodeSkewWindow(t *testing.T) {
	secret := []byte("12345678901234567890")
	verifier := NewTOTPVerifier(TOTPConfig{Skew: 1})

	now := time.Unix(1_700_000_000, 0)
	previous, err := hotpCode(secret, now.Unix()/30-1, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp: %v", err)
	}
	next, err := hotpCode(secret, now.Unix()/30+1, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp: %v", err)
	}
	distant, err := hotpCode(secret, now.Unix()/30+2, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp: %v", err)
	}

	for _, code := range []string{previous, next} {
		ok, err := verifier.VerifyCode(secret, code, now)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !ok {
			t.Fatalf("code %s within skew window rejected", code)
		}
	}

	ok, err := verifier.VerifyCode(secret, distant, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("code two steps ahead must be rejected at skew 1")
	}
}

func TestVerifyCodeMalformed(t *testing.T) {
	secret := []byte("12345678901234567890")
	verifier := NewTOTPVerifier(TOTPConfig{})

	for _, code := range []string{"", "12345", "1234567", "12a456", "      "} {
		ok, err := verifier.VerifyCode(secret, code, time.Now())
		if err != nil {
			t.Fatalf("malformed code %q must not error: %v", code, err)
		}
		if ok {
			t.Fatalf("malformed code %q accepted", code)
		}
	}

	if _, err := verifier.VerifyCode(nil, "123456", time.Now()); err == nil {
		t.Fatal("empty secret must error")
	}
}

func TestVerifyCodeTrimsWhitespace(t *testing.T) {
	secret := []byte("12345678901234567890")
	verifier := NewTOTPVerifier(TOTPConfig{})
	now := time.Unix(1_700_000_000, 0)

	code, err := hotpCode(secret, now.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp: %v", err)
	}

	ok, err := verifier.VerifyCode(secret, "  "+code+"\n", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("whitespace-padded code must verify")
	}
}
