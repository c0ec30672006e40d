package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/models"
)

// ChannelOutcome reports one delivery channel of a dispatch. Attempted and
// Error are independent: a channel can be skipped (reason set), attempted and
// fail (error set), or attempted and succeed.
type ChannelOutcome struct {
	Attempted    bool   `json:"attempted"`
	SuccessCount int    `json:"success_count,omitempty"`
	FailureCount int    `json:"failure_count,omitempty"`
	SkipReason   string `json:"skip_reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DispatchResult is the side-channel outcome of a notification dispatch. It
// rides in the ingestion response payload; it is never an error the caller
// has to handle.
type DispatchResult struct {
	NotificationID string         `json:"notification_id,omitempty"`
	Push           ChannelOutcome `json:"push"`
	Email          ChannelOutcome `json:"email"`
}

// Dispatcher fans a bin alert out to push and email. The two channels are
// independent: a failure in one never prevents the other from being attempted.
type Dispatcher struct {
	bins   database.BinStore
	notifs database.NotificationStore
	tokens database.TokenStore
	users  database.UserStore

	push PushSender  // nil when FCM is not configured
	mail EmailSender // nil when SMTP is not configured

	tasks *Background

	// Overflow dispatch threshold, default 80. Critical readings at or above
	// it trigger the full fan-out.
	Threshold float64

	// Bound on each outbound provider call so a slow provider cannot stall
	// the ingestion response.
	SendTimeout time.Duration
}

func NewDispatcher(store *database.Store, push PushSender, mail EmailSender, tasks *Background) *Dispatcher {
	return &Dispatcher{
		bins:        store,
		notifs:      store,
		tokens:      store,
		users:       store,
		push:        push,
		mail:        mail,
		tasks:       tasks,
		Threshold:   models.CriticalCutoff,
		SendTimeout: 10 * time.Second,
	}
}

// NewDispatcherWithStores wires explicit store interfaces. Used by tests.
func NewDispatcherWithStores(bins database.BinStore, notifs database.NotificationStore,
	tokens database.TokenStore, users database.UserStore,
	push PushSender, mail EmailSender, tasks *Background) *Dispatcher {
	return &Dispatcher{
		bins:        bins,
		notifs:      notifs,
		tokens:      tokens,
		users:       users,
		push:        push,
		mail:        mail,
		tasks:       tasks,
		Threshold:   models.CriticalCutoff,
		SendTimeout: 10 * time.Second,
	}
}

// NotifyOverflow runs the overflow fan-out for a bin whose reading crossed the
// critical cutoff. Every failure is captured in the result instead of being
// returned, so ingestion success is never coupled to notification delivery.
func (d *Dispatcher) NotifyOverflow(ctx context.Context, binID string, fillPercentage float64, address string) *DispatchResult {
	result := &DispatchResult{}

	if fillPercentage < d.Threshold {
		result.Push.SkipReason = "below overflow threshold"
		result.Email.SkipReason = "below overflow threshold"
		return result
	}

	// Resolve the bin's owner. A bin that auto-registered from the field has
	// none yet; that is a non-fatal outcome, not an error.
	ownerID, err := d.bins.BinOwner(binID)
	if err != nil {
		result.Push.SkipReason = "no owner"
		result.Email.SkipReason = "no owner"
		log.Printf("⚠️  Overflow on bin %s but no owner recorded, skipping dispatch", binID)
		return result
	}

	title := "Bin almost full"
	message := fmt.Sprintf("Bin %s has reached %.0f%% capacity and needs to be emptied.", binID, fillPercentage)

	notification := &models.Notification{
		UserID:    &ownerID,
		BinID:     &binID,
		Title:     title,
		Message:   message,
		Type:      models.NotificationTypeWarning,
		Priority:  "high",
		Category:  "overflow",
		CreatedAt: time.Now().Unix(),
	}
	if err := d.notifs.InsertNotification(notification); err != nil {
		// The channels still run; the record is best effort.
		log.Printf("❌ Failed to persist overflow notification for bin %s: %v", binID, err)
	} else {
		result.NotificationID = notification.ID
	}

	data := map[string]string{
		"type":    "bin_overflow",
		"bin_id":  binID,
		"fill":    fmt.Sprintf("%.0f", fillPercentage),
		"address": address,
	}
	d.sendPush(ctx, ownerID, title, message, data, &result.Push)
	d.sendOverflowEmail(ownerID, binID, fillPercentage, address, &result.Email)

	return result
}

// SendTestNotification persists a test notification for the user and pushes it
// to their own registered tokens.
func (d *Dispatcher) SendTestNotification(ctx context.Context, userID, title, message string) *DispatchResult {
	result := &DispatchResult{}
	result.Email.SkipReason = "not used for test notifications"

	notification := &models.Notification{
		UserID:    &userID,
		Title:     title,
		Message:   message,
		Type:      models.NotificationTypeTest,
		Priority:  "normal",
		Category:  "test",
		CreatedAt: time.Now().Unix(),
	}
	if err := d.notifs.InsertNotification(notification); err != nil {
		log.Printf("❌ Failed to persist test notification for user %s: %v", userID, err)
	} else {
		result.NotificationID = notification.ID
	}

	d.sendPush(ctx, userID, title, message, map[string]string{"type": "test"}, &result.Push)
	return result
}

// NotifyCollectionScheduled records the notification and emails the owner with
// the collectionScheduled template.
func (d *Dispatcher) NotifyCollectionScheduled(ctx context.Context, binID, address, ownerID string, when time.Time) *DispatchResult {
	result := &DispatchResult{}

	title := "Collection scheduled"
	message := fmt.Sprintf("A collection for bin %s has been scheduled for %s.", binID, when.Format("Mon, 02 Jan 15:04"))

	notification := &models.Notification{
		UserID:    &ownerID,
		BinID:     &binID,
		Title:     title,
		Message:   message,
		Type:      models.NotificationTypeInfo,
		Priority:  "normal",
		Category:  "collection",
		CreatedAt: time.Now().Unix(),
	}
	if err := d.notifs.InsertNotification(notification); err != nil {
		log.Printf("❌ Failed to persist collection notification for bin %s: %v", binID, err)
	} else {
		result.NotificationID = notification.ID
	}

	d.sendPush(ctx, ownerID, title, message, map[string]string{
		"type":   "collection_scheduled",
		"bin_id": binID,
	}, &result.Push)

	owner, err := d.users.GetUser(ownerID)
	switch {
	case err != nil:
		result.Email.SkipReason = "owner not found"
	case d.mail == nil:
		result.Email.SkipReason = "email disabled"
	default:
		result.Email.Attempted = true
		if err := d.sendMailBounded(func() error {
			return d.mail.SendCollectionScheduledEmail(owner.Email, owner.Name, binID, address, when)
		}); err != nil {
			result.Email.Error = err.Error()
			log.Printf("❌ Collection email for bin %s failed: %v", binID, err)
		}
	}

	return result
}

// sendPush multicasts to the user's registered tokens and schedules cleanup of
// tokens the provider reports as permanently invalid. Cleanup is fire and
// forget; the caller does not wait for it.
func (d *Dispatcher) sendPush(ctx context.Context, userID, title, body string, data map[string]string, outcome *ChannelOutcome) {
	if d.push == nil {
		outcome.SkipReason = "push disabled"
		return
	}

	tokens, err := d.tokens.ListTokens(userID)
	if err != nil {
		outcome.Error = fmt.Sprintf("token lookup failed: %v", err)
		return
	}
	if len(tokens) == 0 {
		outcome.SkipReason = "no tokens"
		return
	}

	values := make([]string, len(tokens))
	for i, token := range tokens {
		values[i] = token.Token
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	outcome.Attempted = true
	report, err := d.push.SendMulticast(sendCtx, values, title, body, data)
	if err != nil {
		outcome.Error = err.Error()
		log.Printf("❌ Push dispatch for user %s failed: %v", userID, err)
		return
	}

	outcome.SuccessCount = report.SuccessCount
	outcome.FailureCount = report.FailureCount

	for _, invalid := range report.InvalidTokens {
		token := invalid
		d.tasks.Go("fcm-token-cleanup", func() {
			if err := d.tokens.DeleteTokenByValue(token); err != nil {
				log.Printf("❌ Failed to delete invalid FCM token: %v", err)
			}
		})
	}
}

func (d *Dispatcher) sendOverflowEmail(ownerID, binID string, fillPercentage float64, address string, outcome *ChannelOutcome) {
	if d.mail == nil {
		outcome.SkipReason = "email disabled"
		return
	}

	owner, err := d.users.GetUser(ownerID)
	if err != nil {
		outcome.SkipReason = "owner not found"
		return
	}
	if !owner.NotificationsEnabled {
		outcome.SkipReason = "owner opted out"
		return
	}

	outcome.Attempted = true
	if err := d.sendMailBounded(func() error {
		return d.mail.SendBinOverflowEmail(owner.Email, owner.Name, binID, fillPercentage, address)
	}); err != nil {
		outcome.Error = err.Error()
		log.Printf("❌ Overflow email for bin %s failed: %v", binID, err)
	}
}

// sendMailBounded runs a send with an upper bound on how long the caller
// waits. On timeout the send keeps running on the background runner so the
// SMTP connection is not torn down mid-delivery.
func (d *Dispatcher) sendMailBounded(send func() error) error {
	done := make(chan error, 1)
	d.tasks.Go("email-send", func() {
		done <- send()
	})

	select {
	case err := <-done:
		return err
	case <-time.After(d.SendTimeout):
		return fmt.Errorf("email send timed out after %s", d.SendTimeout)
	}
}
