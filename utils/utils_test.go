package utils

import (
	"strings"
	"testing"
	"time"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"email", ValidEmail, "coach@example.com", true},
		{"email with name", ValidEmail, "Coach <coach@example.com>", false},
		{"email empty", ValidEmail, "", false},
		{"phone", ValidPhone, "010-1234-5678", true},
		{"phone short middle", ValidPhone, "011-123-4567", true},
		{"phone no dashes", ValidPhone, "01012345678", false},
		{"code", ValidResetCode, "012345", true},
		{"code letters", ValidResetCode, "12a456", false},
		{"code long", ValidResetCode, "1234567", false},
		{"password", ValidPassword, "12345678", true},
		{"password short", ValidPassword, "1234567", false},
		{"password long", ValidPassword, strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP(6)
		if err != nil {
			t.Fatal(err)
		}
		if !ValidResetCode(code) {
			t.Fatalf("code %q is not 6 digits", code)
		}
	}
}

func TestParseDateAndStartOfDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)

	d, err := ParseDate("2026-03-01", seoul)
	if err != nil {
		t.Fatal(err)
	}
	if d.Hour() != 0 || d.Location() != seoul {
		t.Errorf("date = %v, want midnight KST", d)
	}

	ts, err := ParseDate("2026-02-28T20:30:00Z", seoul)
	if err != nil {
		t.Fatal(err)
	}
	if day := StartOfDay(ts, seoul); !day.Equal(d) {
		t.Errorf("StartOfDay = %v, want %v", day, d)
	}

	if _, err := ParseDate("03/01/2026", seoul); err == nil {
		t.Error("expected an error for an unknown layout")
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("password123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hashed, "password123") || CheckPassword(hashed, "password124") {
		t.Error("CheckPassword does not match HashPassword")
	}
}
