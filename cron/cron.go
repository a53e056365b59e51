package cron

import (
	"context"
	"time"

	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/meinhoongagan/pt-buddy/mailer"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// jobLogger routes scheduler messages to the application logger.
type jobLogger struct{}

func (jobLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (jobLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// newScheduler runs specs in loc and skips a tick while the previous run of
// the same job is still going.
func newScheduler(loc *time.Location) *cron.Cron {
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(jobLogger{}),
		cron.WithChain(cron.Recover(jobLogger{}), cron.SkipIfStillRunning(jobLogger{})),
	)
}

// StartCronJobs schedules the background jobs in loc and returns the running
// scheduler so main can stop it on shutdown.
func StartCronJobs(db *gorm.DB, cfg config.CronConfig, loc *time.Location) (*cron.Cron, error) {
	c := newScheduler(loc)

	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	}{
		{"*/5 * * * *", "appointment reminders", func(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
			return SendAppointmentReminders(ctx, tx, now, cfg.ReminderWindow)
		}},
		{"*/30 * * * *", "reset token purge", PurgeResetTokens},
		{"10 0 * * *", "membership expiry", ExpireMemberships},
	}

	for _, job := range jobs {
		job := job
		_, err := c.AddFunc(job.spec, func() {
			ctx := context.Background()
			n, err := job.run(ctx, db.WithContext(ctx), time.Now())
			if err != nil {
				logger.Error("cron job failed", "job", job.name, "error", err)
				return
			}
			if n > 0 {
				logger.Info("cron job finished", "job", job.name, "affected", n)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	c.Start()
	logger.Info("cron scheduler started", "jobs", len(jobs))
	return c, nil
}

// SendAppointmentReminders emails members whose scheduled session starts
// within window and marks each appointment once its email went out. Members
// without an email are skipped and retried on the next run.
func SendAppointmentReminders(ctx context.Context, tx *gorm.DB, now time.Time, window time.Duration) (int64, error) {
	var appointments []models.Appointment
	err := tx.Preload("Member").Preload("Trainer").
		Where("status = ? AND reminder_sent = ? AND scheduled_at > ? AND scheduled_at <= ?",
			models.StatusScheduled, false, now, now.Add(window)).
		Order("scheduled_at asc").
		Find(&appointments).Error
	if err != nil {
		return 0, err
	}

	loc := config.Current.Location()
	var sent int64
	for _, appointment := range appointments {
		if appointment.Member == nil || appointment.Member.Email == nil || *appointment.Member.Email == "" {
			continue
		}
		trainerName := ""
		if appointment.Trainer != nil {
			trainerName = appointment.Trainer.Name
		}

		err := mailer.SendAppointmentReminder(ctx, *appointment.Member.Email, appointment.Member.Name,
			trainerName, appointment.ScheduledAt.In(loc), appointment.Duration)
		if err != nil {
			logger.Warn("failed to send reminder", "appointment_id", appointment.ID, "error", err)
			continue
		}

		if err := tx.Model(&models.Appointment{}).Where("id = ?", appointment.ID).
			UpdateColumn("reminder_sent", true).Error; err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func PurgeResetTokens(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	return models.PurgeExpiredResetTokens(tx, now)
}

func ExpireMemberships(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	return models.DeactivateExpiredMemberships(tx, now, config.Current.Location())
}
