package relay

import (
	"fmt"
	"time"

	"github.com/bnema/peer-chess/internal/domain"
	gocache "github.com/patrickmn/go-cache"
)

const intentPending domain.IntentStatus = "pending"

type intentEntry struct {
	a, b   domain.Identity
	intent domain.Intent
	status domain.IntentStatus
}

func (e intentEntry) involves(identity domain.Identity) bool {
	return e.a == identity || e.b == identity
}

// IntentTable tracks intents negotiated between pairs of peers. Pending
// negotiations expire after the configured TTL; in-progress intents live until
// they are completed or one side disconnects.
type IntentTable struct {
	cache      *gocache.Cache
	pendingTTL time.Duration
}

func NewIntentTable(pendingTTL time.Duration) *IntentTable {
	return &IntentTable{
		cache:      gocache.New(gocache.NoExpiration, time.Minute),
		pendingTTL: pendingTTL,
	}
}

func intentKey(a, b domain.Identity, intent domain.Intent) (string, domain.Identity, domain.Identity) {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%s|%d", a, b, intent), a, b
}

func (t *IntentTable) Pending(a, b domain.Identity, intent domain.Intent) {
	key, first, second := intentKey(a, b, intent)
	if existing, ok := t.cache.Get(key); ok && existing.(intentEntry).status == domain.IntentInProgress {
		return
	}

	t.cache.Set(key, intentEntry{a: first, b: second, intent: intent, status: intentPending}, t.pendingTTL)
}

func (t *IntentTable) Set(a, b domain.Identity, intent domain.Intent, status domain.IntentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown intent status %q", status)
	}

	key, first, second := intentKey(a, b, intent)
	if status == domain.IntentCompleted {
		t.cache.Delete(key)
		return nil
	}

	t.cache.Set(key, intentEntry{a: first, b: second, intent: intent, status: status}, gocache.NoExpiration)
	return nil
}

func (t *IntentTable) Status(a, b domain.Identity, intent domain.Intent) (domain.IntentStatus, bool) {
	key, _, _ := intentKey(a, b, intent)
	entry, ok := t.cache.Get(key)
	if !ok {
		return "", false
	}
	return entry.(intentEntry).status, true
}

// Busy reports whether identity has an in-progress intent with anybody.
func (t *IntentTable) Busy(identity domain.Identity) bool {
	for _, item := range t.cache.Items() {
		entry := item.Object.(intentEntry)
		if entry.status == domain.IntentInProgress && entry.involves(identity) {
			return true
		}
	}
	return false
}

// Forget drops every intent involving identity and returns the other sides.
func (t *IntentTable) Forget(identity domain.Identity) []domain.Identity {
	var partners []domain.Identity
	for key, item := range t.cache.Items() {
		entry := item.Object.(intentEntry)
		if !entry.involves(identity) {
			continue
		}

		t.cache.Delete(key)
		if entry.a == identity {
			partners = append(partners, entry.b)
		} else {
			partners = append(partners, entry.a)
		}
	}
	return partners
}
