package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meinhoongagan/pt-buddy/models"
)

func TestSignupAndLogin(t *testing.T) {
	env := setupTest(t)

	signup := map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "New Coach",
		"phone":    "010-1234-5678",
		"role":     "trainer",
	}
	resp := call(t, env.app, http.MethodPost, "/auth/signup", "", signup, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201", resp.StatusCode)
	}
	var session string
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			session = c.Value
		}
	}
	if session == "" {
		t.Fatal("signup did not set the session cookie")
	}

	resp = call(t, env.app, http.MethodPost, "/auth/signup", "", signup, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", resp.StatusCode)
	}

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"correct password", map[string]string{"email": "new@example.com", "password": "password123", "role": "trainer"}, http.StatusOK},
		{"wrong password", map[string]string{"email": "new@example.com", "password": "nope-nope", "role": "trainer"}, http.StatusUnauthorized},
		{"trainer through admin login", map[string]string{"email": "new@example.com", "password": "password123", "role": "admin"}, http.StatusForbidden},
		{"unknown email", map[string]string{"email": "ghost@example.com", "password": "password123", "role": "trainer"}, http.StatusUnauthorized},
		{"unknown role", map[string]string{"email": "new@example.com", "password": "password123", "role": "owner"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, env.app, http.MethodPost, "/auth/login", "", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Cookie", "token="+session)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("me with cookie status = %d, want 200", resp.StatusCode)
	}
}

func TestSignupValidation(t *testing.T) {
	env := setupTest(t)

	var body struct {
		Error   string `json:"error"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	resp := call(t, env.app, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "bad", "password": "short", "name": "A", "phone": "12345", "role": "admin",
	}, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var fields []string
	for _, d := range body.Details {
		fields = append(fields, d.Field)
	}
	if got := strings.Join(fields, ","); got != "email,password,name,phone,role" {
		t.Errorf("invalid fields = %s", got)
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	if err := trainer.Deactivate(env.db); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	resp := call(t, env.app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "coach@example.com", "password": "password123", "role": "trainer",
	}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestMemberWithoutPasswordCannotLogin(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	seedMember(t, trainer.ID, "kim@example.com")

	resp := call(t, env.app, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "kim@example.com", "password": "whatever1", "role": string(models.RoleMember),
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
