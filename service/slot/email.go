package slot

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// sendBookingConfirmation emails the booking details. SMTP settings come from
// the environment; an unset host skips the send.
func sendBookingConfirmation(email, name string, start, end time.Time) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	if smtpHost == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Booking Confirmation")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour booking from %s to %s is confirmed. See you at the academy!",
		name,
		start.Format("Mon, 02 Jan 2006 15:04"),
		end.Format("15:04"),
	))

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
