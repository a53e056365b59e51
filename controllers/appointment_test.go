package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/meinhoongagan/pt-buddy/events"
	"github.com/meinhoongagan/pt-buddy/models"
)

func TestUpdateAppointmentNotOwned(t *testing.T) {
	env := setupTest(t)
	owner := seedTrainer(t, "owner@example.com", "password123")
	intruder := seedTrainer(t, "intruder@example.com", "password123")
	member := seedMember(t, owner.ID, "")
	membership := seedMembership(t, member.ID, 10, 5)
	appointment := models.Appointment{TrainerID: owner.ID, MemberID: member.ID, ScheduledAt: time.Now().UTC().Add(time.Hour), Duration: 60}
	env.db.Create(&appointment)

	resp := call(t, env.app, http.MethodPatch, fmt.Sprintf("/appointments/%d", appointment.ID),
		tokenFor(t, intruder.ID, models.RoleTrainer), map[string]string{"status": "completed"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var stored models.Appointment
	env.db.First(&stored, appointment.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("appointment status = %s, want scheduled", stored.Status)
	}
	var m models.Membership
	env.db.First(&m, membership.ID)
	if *m.RemainingSessions != 5 {
		t.Errorf("remaining = %d, want 5", *m.RemainingSessions)
	}

	resp = call(t, env.app, http.MethodDelete, fmt.Sprintf("/appointments/%d", appointment.ID),
		tokenFor(t, intruder.ID, models.RoleTrainer), nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCompleteAppointment(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	member := seedMember(t, trainer.ID, "")
	membership := seedMembership(t, member.ID, 10, 5)
	appointment := models.Appointment{TrainerID: trainer.ID, MemberID: member.ID, ScheduledAt: time.Now().UTC().Add(time.Hour), Duration: 60}
	env.db.Create(&appointment)
	token := tokenFor(t, trainer.ID, models.RoleTrainer)
	path := fmt.Sprintf("/appointments/%d", appointment.ID)

	var body models.Appointment
	resp := call(t, env.app, http.MethodPatch, path, token, map[string]string{"status": "completed"}, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", body.Status)
	}
	if body.Membership == nil || *body.Membership.RemainingSessions != 4 {
		t.Fatalf("membership = %+v, want 4 sessions left", body.Membership)
	}
	if env.bus.published(events.AppointmentCompleted) != 1 {
		t.Errorf("appointment.completed published %d times, want 1", env.bus.published(events.AppointmentCompleted))
	}

	// repeating the same status is accepted without a second charge
	resp = call(t, env.app, http.MethodPatch, path, token, map[string]string{"status": "completed"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat status = %d, want 200", resp.StatusCode)
	}
	var m models.Membership
	env.db.First(&m, membership.ID)
	if *m.RemainingSessions != 4 {
		t.Errorf("remaining = %d, want 4", *m.RemainingSessions)
	}

	resp = call(t, env.app, http.MethodPatch, path, token, map[string]string{"status": "scheduled"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reopen status = %d, want 400", resp.StatusCode)
	}
}

func TestCompletingLastSessionEmitsExhausted(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	member := seedMember(t, trainer.ID, "")
	seedMembership(t, member.ID, 10, 1)
	appointment := models.Appointment{TrainerID: trainer.ID, MemberID: member.ID, ScheduledAt: time.Now().UTC().Add(time.Hour), Duration: 60}
	env.db.Create(&appointment)

	resp := call(t, env.app, http.MethodPatch, fmt.Sprintf("/appointments/%d", appointment.ID),
		tokenFor(t, trainer.ID, models.RoleTrainer), map[string]string{"status": "completed"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if env.bus.published(events.MembershipExhausted) != 1 {
		t.Error("membership.exhausted was not published")
	}
}

func TestCreateAppointment(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	other := seedTrainer(t, "other@example.com", "password123")
	member := seedMember(t, trainer.ID, "")
	stranger := seedMember(t, other.ID, "")
	token := tokenFor(t, trainer.ID, models.RoleTrainer)
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	var created models.Appointment
	resp := call(t, env.app, http.MethodPost, "/appointments", token, map[string]interface{}{
		"memberId":    member.ID,
		"scheduledAt": at,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if created.Duration != models.DefaultAppointmentDuration || created.Status != models.StatusScheduled {
		t.Errorf("created = %+v, want default duration and scheduled", created)
	}

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"overlapping slot", map[string]interface{}{"memberId": member.ID, "scheduledAt": at.Add(30 * time.Minute)}, http.StatusConflict},
		{"another trainer's member", map[string]interface{}{"memberId": stranger.ID, "scheduledAt": at.Add(3 * time.Hour)}, http.StatusNotFound},
		{"missing member", map[string]interface{}{"scheduledAt": at.Add(3 * time.Hour)}, http.StatusBadRequest},
		{"negative duration", map[string]interface{}{"memberId": member.ID, "scheduledAt": at.Add(3 * time.Hour), "duration": -5}, http.StatusBadRequest},
		{"back to back", map[string]interface{}{"memberId": member.ID, "scheduledAt": at.Add(time.Hour)}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, env.app, http.MethodPost, "/appointments", token, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAppointmentRoutesRejectMembers(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	member := seedMember(t, trainer.ID, "kim@example.com")

	resp := call(t, env.app, http.MethodPost, "/appointments", tokenFor(t, member.ID, models.RoleMember),
		map[string]interface{}{"memberId": member.ID, "scheduledAt": time.Now().UTC()}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	resp = call(t, env.app, http.MethodPost, "/appointments", "", map[string]interface{}{}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", resp.StatusCode)
	}
}

func TestUpdateMembershipValidation(t *testing.T) {
	env := setupTest(t)
	trainer := seedTrainer(t, "coach@example.com", "password123")
	other := seedTrainer(t, "other@example.com", "password123")
	member := seedMember(t, trainer.ID, "")
	membership := seedMembership(t, member.ID, 10, 5)
	path := fmt.Sprintf("/memberships/%d", membership.ID)

	resp := call(t, env.app, http.MethodPatch, path, tokenFor(t, trainer.ID, models.RoleTrainer),
		map[string]int{"remainingSessions": 11}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("above total status = %d, want 400", resp.StatusCode)
	}

	resp = call(t, env.app, http.MethodPatch, path, tokenFor(t, other.ID, models.RoleTrainer),
		map[string]int{"remainingSessions": 3}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign trainer status = %d, want 404", resp.StatusCode)
	}

	var updated models.Membership
	resp = call(t, env.app, http.MethodPatch, path, tokenFor(t, trainer.ID, models.RoleTrainer),
		map[string]int{"remainingSessions": 3}, &updated)
	if resp.StatusCode != http.StatusOK || *updated.RemainingSessions != 3 {
		t.Errorf("update = %d %+v, want 200 and 3 left", resp.StatusCode, updated)
	}
}
