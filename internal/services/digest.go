package services

import (
	"context"
	"log"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/models"
)

// DigestService sends each eligible user one daily summary email of their
// bins, highlighting the ones at or above the critical cutoff.
type DigestService struct {
	users database.UserStore
	bins  database.BinStore
	mail  EmailSender

	// Hour of day (local time) the digest goes out.
	Hour int
}

func NewDigestService(store *database.Store, mail EmailSender) *DigestService {
	return &DigestService{users: store, bins: store, mail: mail, Hour: 7}
}

// NewDigestServiceWithStores wires explicit store interfaces. Used by tests.
func NewDigestServiceWithStores(users database.UserStore, bins database.BinStore, mail EmailSender) *DigestService {
	return &DigestService{users: users, bins: bins, mail: mail, Hour: 7}
}

// Run fires the digest once a day at the configured hour until ctx is done.
func (d *DigestService) Run(ctx context.Context) {
	log.Printf("📬 Daily digest scheduler started (runs at %02d:00)", d.Hour)

	for {
		next := d.nextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("📬 Daily digest scheduler stopped")
			return
		case <-timer.C:
			sent, skipped, failed := d.RunOnce(ctx)
			log.Printf("📬 Daily digest complete: %d sent, %d skipped, %d failed", sent, skipped, failed)
		}
	}
}

func (d *DigestService) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// RunOnce performs one digest pass. One user's failure is counted and logged
// but never aborts the loop for the rest.
func (d *DigestService) RunOnce(ctx context.Context) (sent, skipped, failed int) {
	if d.mail == nil {
		log.Println("⚠️  Digest run skipped: email disabled")
		return 0, 0, 0
	}

	users, err := d.users.ListActiveUsers()
	if err != nil {
		log.Printf("❌ Digest run aborted, user listing failed: %v", err)
		return 0, 0, 0
	}

	for _, user := range users {
		select {
		case <-ctx.Done():
			return sent, skipped, failed
		default:
		}

		if !user.NotificationsEnabled {
			skipped++
			continue
		}

		if err := d.sendUserDigest(&user); err != nil {
			failed++
			log.Printf("❌ Digest for %s failed: %v", user.Email, err)
			continue
		}
		sent++
	}

	return sent, skipped, failed
}

func (d *DigestService) sendUserDigest(user *models.User) error {
	bins, err := d.bins.ListBins(user.ID)
	if err != nil {
		return err
	}
	if len(bins) == 0 {
		return nil
	}

	rows := make([]DigestBin, 0, len(bins))
	for _, bin := range bins {
		row := DigestBin{
			BinID:          bin.ID,
			Name:           bin.Name,
			Address:        bin.Address,
			FillPercentage: bin.FillPercentage,
			Status:         models.ClassifyFillLevel(bin.FillPercentage),
		}
		if reading, err := d.bins.LatestReading(bin.ID); err == nil {
			row.FillPercentage = reading.FillPercentage
			row.Status = models.ClassifyFillLevel(reading.FillPercentage)
			row.LastReading = time.Unix(reading.RecordedAt, 0)
		}
		rows = append(rows, row)
	}

	return d.mail.SendDailyDigestEmail(user.Email, user.Name, rows)
}
