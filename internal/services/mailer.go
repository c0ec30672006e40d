package services

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// EmailSender is the email channel consumed by the dispatcher and the daily
// digest job. One method per template in the fixed template set.
type EmailSender interface {
	SendBinOverflowEmail(to, name, binID string, fillPercentage float64, address string) error
	SendBinStatusEmail(to, name, binID, status string, fillPercentage float64) error
	SendCollectionScheduledEmail(to, name, binID, address string, scheduledFor time.Time) error
	SendDailyDigestEmail(to, name string, bins []DigestBin) error
}

// DigestBin is one row of the daily summary email.
type DigestBin struct {
	BinID          string
	Name           string
	Address        string
	FillPercentage float64
	Status         string
	LastReading    time.Time
}

// Mailer sends templated mail over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer builds a mailer for an SMTP-compatible transport.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	dialer := gomail.NewDialer(host, port, username, password)
	if from == "" {
		from = username
	}
	return &Mailer{dialer: dialer, from: from}
}

func (m *Mailer) send(to, subject, plainBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("SmartBin Alerts <%s>", m.from))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendBinOverflowEmail renders the binOverflow template.
func (m *Mailer) SendBinOverflowEmail(to, name, binID string, fillPercentage float64, address string) error {
	subject := fmt.Sprintf("⚠️ Bin %s is almost full", binID)

	plain := fmt.Sprintf(`Hello %s,

Bin %s (%s) has reached %.0f%% capacity and needs to be emptied.

Please schedule a collection as soon as possible.

SmartBin • automated alert, sent %s`,
		name, binID, address, fillPercentage, time.Now().Format("Mon, 02 Jan 2006 15:04 MST"))

	html := m.wrapHTML("Bin overflow alert", fmt.Sprintf(`
			<p style="font-size: 16px;">Hello %s,</p>
			<p>Bin <strong>%s</strong> (%s) has reached
			<strong style="color: #cc3300;">%.0f%%</strong> capacity and needs to be emptied.</p>
			<p>Please schedule a collection as soon as possible.</p>`,
		name, binID, address, fillPercentage))

	return m.send(to, subject, plain, html)
}

// SendBinStatusEmail renders the binStatus template.
func (m *Mailer) SendBinStatusEmail(to, name, binID, status string, fillPercentage float64) error {
	subject := fmt.Sprintf("Bin %s status update: %s", binID, status)

	plain := fmt.Sprintf(`Hello %s,

Bin %s is now "%s" at %.0f%% capacity.

SmartBin • automated alert, sent %s`,
		name, binID, status, fillPercentage, time.Now().Format("Mon, 02 Jan 2006 15:04 MST"))

	html := m.wrapHTML("Bin status update", fmt.Sprintf(`
			<p style="font-size: 16px;">Hello %s,</p>
			<p>Bin <strong>%s</strong> is now <strong>%s</strong> at %.0f%% capacity.</p>`,
		name, binID, status, fillPercentage))

	return m.send(to, subject, plain, html)
}

// SendCollectionScheduledEmail renders the collectionScheduled template.
func (m *Mailer) SendCollectionScheduledEmail(to, name, binID, address string, scheduledFor time.Time) error {
	subject := fmt.Sprintf("Collection scheduled for bin %s", binID)
	when := scheduledFor.Format("Mon, 02 Jan 2006 15:04")

	plain := fmt.Sprintf(`Hello %s,

A collection has been scheduled for bin %s (%s) on %s.

SmartBin • automated alert, sent %s`,
		name, binID, address, when, time.Now().Format("Mon, 02 Jan 2006 15:04 MST"))

	html := m.wrapHTML("Collection scheduled", fmt.Sprintf(`
			<p style="font-size: 16px;">Hello %s,</p>
			<p>A collection has been scheduled for bin <strong>%s</strong> (%s) on
			<strong>%s</strong>.</p>`,
		name, binID, address, when))

	return m.send(to, subject, plain, html)
}

// SendDailyDigestEmail renders the daily summary, highlighting bins at or
// above the critical cutoff.
func (m *Mailer) SendDailyDigestEmail(to, name string, bins []DigestBin) error {
	subject := fmt.Sprintf("Your SmartBin daily report — %s", time.Now().Format("Jan 02"))

	rows := ""
	var plainRows strings.Builder
	for _, bin := range bins {
		color := "#333333"
		if bin.Status == "critical" {
			color = "#cc3300"
		} else if bin.Status == "warning" {
			color = "#cc8800"
		}
		rows += fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border-bottom: 1px solid #eeeeee;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eeeeee;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eeeeee; color: %s; font-weight: 600;">%.0f%% (%s)</td>
			</tr>`,
			bin.Name, bin.Address, color, bin.FillPercentage, bin.Status)

		plainRows.WriteString(fmt.Sprintf("%s — %s: %.0f%% (%s)\n",
			bin.Name, bin.Address, bin.FillPercentage, bin.Status))
	}

	plain := fmt.Sprintf(`Hello %s,

Here is today's summary of your bins:

%s
SmartBin • daily report, sent %s`,
		name, plainRows.String(), time.Now().Format("Mon, 02 Jan 2006 15:04 MST"))

	html := m.wrapHTML("Daily bin report", fmt.Sprintf(`
			<p style="font-size: 16px;">Hello %s,</p>
			<p>Here is today's summary of your bins:</p>
			<table style="width: 100%%; border-collapse: collapse;">
				<tr>
					<th style="text-align: left; padding: 8px;">Bin</th>
					<th style="text-align: left; padding: 8px;">Location</th>
					<th style="text-align: left; padding: 8px;">Fill level</th>
				</tr>
				%s
			</table>`,
		name, rows))

	return m.send(to, subject, plain, html)
}

func (m *Mailer) wrapHTML(title, content string) string {
	return fmt.Sprintf(`
		<!DOCTYPE html>
		<html lang="en">
		<head>
			<meta charset="UTF-8">
			<meta name="viewport" content="width=device-width, initial-scale=1.0">
			<title>%s</title>
		</head>
		<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f4f4f9; margin: 0; padding: 0;">
			<div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);">
				<div style="background-color: #2e7d32; color: #ffffff; padding: 20px; text-align: center;">
					<h1 style="margin: 10px 0; font-size: 24px;">%s</h1>
				</div>
				<div style="padding: 30px; color: #333333; line-height: 1.6;">
					%s
				</div>
				<div style="text-align: center; padding: 20px; font-size: 12px; color: #666666;">
					<p>SmartBin • All rights reserved</p>
				</div>
			</div>
		</body>
		</html>`, title, title, content)
}
