package mailer

import (
	"context"
	"fmt"
	"html"
	"time"
)

// SendResetCode emails a password reset code.
func SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error {
	subject := "[PT Buddy] Password reset code"
	body := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
			<h2>Password reset</h2>
			<p>Enter the code below to reset your password.</p>
			<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">%s</p>
			<p>The code is valid for %d minutes. If you did not request it, ignore this email.</p>
		</div>
	`, code, int(ttl.Minutes()))

	return Client.Send(ctx, to, subject, body)
}

// SendAppointmentReminder tells a member about an upcoming session.
func SendAppointmentReminder(ctx context.Context, to, memberName, trainerName string, at time.Time, duration int) error {
	subject := "[PT Buddy] Upcoming PT session"
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>This is a reminder for your upcoming PT session.</p>
		<ul>
			<li><strong>Trainer:</strong> %s</li>
			<li><strong>Start:</strong> %s</li>
			<li><strong>Duration:</strong> %d minutes</li>
		</ul>
		<p>If you need to reschedule, contact your trainer as soon as possible.</p>
	`, html.EscapeString(memberName), html.EscapeString(trainerName), at.Format("2006-01-02 15:04"), duration)

	return Client.Send(ctx, to, subject, body)
}
