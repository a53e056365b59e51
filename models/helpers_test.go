package models

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&Trainer{}, &Member{}, &Membership{}, &Appointment{}, &PasswordResetToken{},
		&Supplement{}, &MemberSupplement{}, &SupplementLog{}, &WorkoutLog{},
		&CommunityPost{}, &CommunityComment{}, &CommunityPostLike{}, &CommunityCommentLike{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func intPtr(v int) *int { return &v }

func seedTrainer(t *testing.T, db *gorm.DB, email string) *Trainer {
	t.Helper()
	trainer := &Trainer{Email: email, Password: "x", Name: "Coach", Role: RoleTrainer, IsActive: true}
	if err := db.Create(trainer).Error; err != nil {
		t.Fatalf("create trainer: %v", err)
	}
	return trainer
}

func seedMember(t *testing.T, db *gorm.DB, trainerID uint) *Member {
	t.Helper()
	member := &Member{TrainerID: &trainerID, Name: "Kim", Phone: "010-1234-5678", IsActive: true}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

func seedSessionMembership(t *testing.T, db *gorm.DB, memberID uint, total, remaining int, createdAt time.Time) *Membership {
	t.Helper()
	m := &Membership{
		MemberID:          memberID,
		Type:              MembershipSession,
		TotalSessions:     intPtr(total),
		RemainingSessions: intPtr(remaining),
		StartDate:         createdAt,
		IsActive:          true,
		CreatedAt:         createdAt,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return m
}

func seedAppointment(t *testing.T, db *gorm.DB, trainerID, memberID uint, at time.Time) *Appointment {
	t.Helper()
	a := &Appointment{TrainerID: trainerID, MemberID: memberID, ScheduledAt: at, Duration: 60}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func reloadMembership(t *testing.T, db *gorm.DB, id uint) Membership {
	t.Helper()
	var m Membership
	if err := db.First(&m, id).Error; err != nil {
		t.Fatalf("reload membership: %v", err)
	}
	return m
}
