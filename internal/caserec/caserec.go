// Package caserec defines the persisted case record, one applicant's
// submission of one form type moving through its status lifecycle, and the
// storage backends that hold it.
package caserec

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casekit/formfill/internal/mapping"
)

// Status is the case state machine:
// DRAFT -> READY_FOR_REVIEW -> {FILED, REJECTED, APPROVED}. EXPIRED is a
// terminal state a stale draft decays into. DRAFT is the only state that
// accepts patches.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusReadyForReview Status = "READY_FOR_REVIEW"
	StatusFiled          Status = "FILED"
	StatusRejected       Status = "REJECTED"
	StatusApproved       Status = "APPROVED"
	StatusExpired        Status = "EXPIRED"
)

// DraftTTL is how long a draft stays editable before decaying to EXPIRED.
const DraftTTL = 30 * 24 * time.Hour

// CaseRecord is the unit of work tracking one (owner, form type) submission.
// Data is the answer document, replaced wholesale on every persisted update.
type CaseRecord struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"ownerId"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// New builds a fresh draft for an owner and form type. The type is
// normalized; the title defaults to "<TYPE> — <date>" when empty.
func New(ownerID, formType, title string, data map[string]any, now time.Time) *CaseRecord {
	formType = mapping.NormalizeForm(formType)
	if title == "" {
		title = fmt.Sprintf("%s — %s", formType, now.Format("2006-01-02"))
	}
	if data == nil {
		data = map[string]any{}
	}
	return &CaseRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Type:      formType,
		Title:     title,
		Status:    StatusDraft,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(DraftTTL),
	}
}

// StaleDraft reports whether the record is a draft past its expiry.
func (c *CaseRecord) StaleDraft(now time.Time) bool {
	return c.Status == StatusDraft && now.After(c.ExpiresAt)
}

// DaysLeft returns whole days until expiry, never negative.
func (c *CaseRecord) DaysLeft(now time.Time) int {
	d := c.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// User is the authenticated principal cases belong to. Kept minimal: the
// engine only needs a stable owner id; everything else is the auth
// collaborator's concern.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
