package services

import (
	"context"
	"testing"
	"time"

	"smartbin-backend/internal/models"
)

func seedOwnerAndBin(store *memStore) {
	store.addUser(models.User{
		ID:                   "owner-1",
		Email:                "owner@example.com",
		Name:                 "Owner",
		Role:                 "user",
		NotificationsEnabled: true,
		IsActive:             true,
	})
	store.addBin(models.Bin{
		ID:      "BIN-001",
		Name:    "Main Street",
		Address: "12 Main St",
		OwnerID: "owner-1",
	})
}

func newTestDispatcher(store *memStore, push PushSender, mail EmailSender) (*Dispatcher, *Background) {
	tasks := NewBackground()
	d := NewDispatcherWithStores(store, store, store, store, push, mail, tasks)
	return d, tasks
}

func TestNotifyOverflowBelowThreshold(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	push := &fakePush{}
	mail := &fakeMail{}
	d, _ := newTestDispatcher(store, push, mail)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 60, "12 Main St")

	if result.Push.Attempted || result.Email.Attempted {
		t.Error("expected no channel attempted below the threshold")
	}
	if result.Push.SkipReason == "" || result.Email.SkipReason == "" {
		t.Error("expected skip reasons on both channels")
	}
	if store.notificationCount() != 0 {
		t.Errorf("expected no notification persisted, got %d", store.notificationCount())
	}
	if push.callCount() != 0 {
		t.Error("push provider should not have been called")
	}
}

func TestNotifyOverflowNoOwner(t *testing.T) {
	store := newMemStore()
	store.addBin(models.Bin{ID: "BIN-001", Address: "12 Main St"}) // auto-registered, no owner
	d, _ := newTestDispatcher(store, &fakePush{}, &fakeMail{})

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")

	if result.Push.SkipReason != "no owner" || result.Email.SkipReason != "no owner" {
		t.Errorf("expected both channels skipped with 'no owner', got push=%q email=%q",
			result.Push.SkipReason, result.Email.SkipReason)
	}
	if store.notificationCount() != 0 {
		t.Error("expected no notification persisted for ownerless bin")
	}
}

func TestNotifyOverflowFanout(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	store.addToken(models.FCMToken{ID: "t1", UserID: "owner-1", Token: "token-a"})
	store.addToken(models.FCMToken{ID: "t2", UserID: "owner-1", Token: "token-b"})

	push := &fakePush{report: &PushReport{SuccessCount: 2}}
	mail := &fakeMail{}
	d, tasks := newTestDispatcher(store, push, mail)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")
	tasks.Wait()

	if result.NotificationID == "" {
		t.Error("expected a persisted notification id")
	}
	if store.notificationCount() != 1 {
		t.Fatalf("expected 1 notification, got %d", store.notificationCount())
	}
	if !result.Push.Attempted || result.Push.SuccessCount != 2 {
		t.Errorf("push outcome = %+v, want attempted with 2 successes", result.Push)
	}
	if len(push.tokens) != 2 {
		t.Errorf("push got %d tokens, want 2", len(push.tokens))
	}
	if !result.Email.Attempted || result.Email.Error != "" {
		t.Errorf("email outcome = %+v, want clean attempt", result.Email)
	}
	if calls := mail.callsFor("binOverflow"); len(calls) != 1 || calls[0].recipient != "owner@example.com" {
		t.Errorf("overflow email calls = %+v, want one to owner@example.com", calls)
	}
}

func TestNotifyOverflowPushFailureStillEmails(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	store.addToken(models.FCMToken{ID: "t1", UserID: "owner-1", Token: "token-a"})

	push := &fakePush{err: errProvider}
	mail := &fakeMail{}
	d, tasks := newTestDispatcher(store, push, mail)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")
	tasks.Wait()

	if result.Push.Error == "" {
		t.Error("expected push error to be captured")
	}
	if !result.Email.Attempted {
		t.Error("email must still be attempted when push fails")
	}
	if len(mail.callsFor("binOverflow")) != 1 {
		t.Error("expected one overflow email despite push failure")
	}
}

func TestNotifyOverflowInvalidTokenCleanup(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	store.addToken(models.FCMToken{ID: "t1", UserID: "owner-1", Token: "stale-token"})
	store.addToken(models.FCMToken{ID: "t2", UserID: "owner-1", Token: "live-token"})

	push := &fakePush{report: &PushReport{
		SuccessCount:  1,
		FailureCount:  1,
		InvalidTokens: []string{"stale-token"},
	}}
	d, tasks := newTestDispatcher(store, push, &fakeMail{})

	d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")
	tasks.Wait()

	if store.tokenCount() != 1 {
		t.Fatalf("expected stale token removed, %d tokens remain", store.tokenCount())
	}
	if _, err := store.GetToken("t2"); err != nil {
		t.Error("live token should survive cleanup")
	}
}

func TestNotifyOverflowOwnerOptedOut(t *testing.T) {
	store := newMemStore()
	store.addUser(models.User{
		ID:       "owner-1",
		Email:    "owner@example.com",
		Role:     "user",
		IsActive: true,
		// NotificationsEnabled false
	})
	store.addBin(models.Bin{ID: "BIN-001", OwnerID: "owner-1"})

	mail := &fakeMail{}
	d, tasks := newTestDispatcher(store, &fakePush{}, mail)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "")
	tasks.Wait()

	if result.Email.Attempted {
		t.Error("email must not be attempted for an opted-out owner")
	}
	if result.Email.SkipReason != "owner opted out" {
		t.Errorf("email skip reason = %q, want 'owner opted out'", result.Email.SkipReason)
	}
	if len(mail.calls) != 0 {
		t.Error("no mail should have been sent")
	}
}

func TestNotifyOverflowChannelsDisabled(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	d, _ := newTestDispatcher(store, nil, nil)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")

	if result.Push.SkipReason != "push disabled" {
		t.Errorf("push skip reason = %q, want 'push disabled'", result.Push.SkipReason)
	}
	if result.Email.SkipReason != "email disabled" {
		t.Errorf("email skip reason = %q, want 'email disabled'", result.Email.SkipReason)
	}
	// The notification record is still written even with no delivery channel.
	if store.notificationCount() != 1 {
		t.Errorf("expected 1 notification, got %d", store.notificationCount())
	}
}

func TestNotifyOverflowNoTokens(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	push := &fakePush{}
	d, _ := newTestDispatcher(store, push, nil)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")

	if result.Push.SkipReason != "no tokens" {
		t.Errorf("push skip reason = %q, want 'no tokens'", result.Push.SkipReason)
	}
	if push.callCount() != 0 {
		t.Error("push provider must not be called with zero tokens")
	}
}

func TestSendTestNotification(t *testing.T) {
	store := newMemStore()
	store.addUser(models.User{ID: "u1", Email: "u@example.com", Role: "user", IsActive: true, NotificationsEnabled: true})
	store.addToken(models.FCMToken{ID: "t1", UserID: "u1", Token: "token-a"})

	push := &fakePush{}
	d, tasks := newTestDispatcher(store, push, &fakeMail{})

	result := d.SendTestNotification(context.Background(), "u1", "Hello", "World")
	tasks.Wait()

	if result.NotificationID == "" {
		t.Error("expected persisted test notification")
	}
	if !result.Push.Attempted {
		t.Error("expected push attempt to the user's own tokens")
	}
	if result.Email.Attempted {
		t.Error("test notifications never use the email channel")
	}
}

func TestNotifyCollectionScheduled(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	mail := &fakeMail{}
	d, tasks := newTestDispatcher(store, nil, mail)

	when := time.Now().Add(24 * time.Hour)
	result := d.NotifyCollectionScheduled(context.Background(), "BIN-001", "12 Main St", "owner-1", when)
	tasks.Wait()

	if result.NotificationID == "" {
		t.Error("expected persisted collection notification")
	}
	if !result.Email.Attempted || result.Email.Error != "" {
		t.Errorf("email outcome = %+v, want clean attempt", result.Email)
	}
	if len(mail.callsFor("collectionScheduled")) != 1 {
		t.Error("expected one collectionScheduled email")
	}
}

func TestNotifyOverflowPersistFailureStillDelivers(t *testing.T) {
	store := newMemStore()
	seedOwnerAndBin(store)
	store.addToken(models.FCMToken{ID: "t1", UserID: "owner-1", Token: "token-a"})
	store.insertNotificationErr = errProvider

	push := &fakePush{}
	mail := &fakeMail{}
	d, tasks := newTestDispatcher(store, push, mail)

	result := d.NotifyOverflow(context.Background(), "BIN-001", 95, "12 Main St")
	tasks.Wait()

	if result.NotificationID != "" {
		t.Error("expected no notification id when persistence fails")
	}
	if !result.Push.Attempted {
		t.Error("push must still run when the notification record fails")
	}
	if len(mail.callsFor("binOverflow")) != 1 {
		t.Error("email must still run when the notification record fails")
	}
}
