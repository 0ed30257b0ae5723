// Package draft owns the lifecycle of a case draft: find-or-create per
// (owner, form type), merge-patch while in DRAFT, expiry, and the submit
// transition. It is the only writer of case records; each write replaces the
// stored answer document wholesale.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/document"
	"github.com/casekit/formfill/internal/lock"
	"github.com/casekit/formfill/internal/mapping"
)

var (
	// ErrNoDraft reports a submit with no existing draft to promote.
	ErrNoDraft = errors.New("no draft for this form type")
	// ErrInvalidPatch reports a patch payload that is not a JSON object.
	ErrInvalidPatch = errors.New("patch must be a JSON object")
)

// Service applies draft operations on top of a Store. Writes to one
// (owner, type) pair are serialized through the locker; see the lock package
// for what each locker flavor does and does not guarantee.
type Service struct {
	store  caserec.Store
	locker lock.Locker
	now    func() time.Time
}

func NewService(store caserec.Store, locker lock.Locker) *Service {
	return &Service{store: store, locker: locker, now: time.Now}
}

func lockKey(ownerID, formType string) string {
	return ownerID + "/" + formType
}

// FindDraft returns the owner's live draft for a form type, or nil when none
// exists. A draft past its TTL is decayed to EXPIRED on the way out and
// reported as absent.
func (s *Service) FindDraft(ctx context.Context, ownerID, formType string) (*caserec.CaseRecord, error) {
	formType = mapping.NormalizeForm(formType)
	rec, err := s.store.FindDraft(ctx, ownerID, formType)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.applyExpiry(ctx, rec)
}

// applyExpiry persists the DRAFT -> EXPIRED decay when due. Returns nil when
// the record stopped being a live draft.
func (s *Service) applyExpiry(ctx context.Context, rec *caserec.CaseRecord) (*caserec.CaseRecord, error) {
	if !rec.StaleDraft(s.now()) {
		return rec, nil
	}
	rec.Status = caserec.StatusExpired
	rec.UpdatedAt = s.now()
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("expire draft %s: %w", rec.ID, err)
	}
	return nil, nil
}

// UpsertPatch merges a patch into the owner's draft for a form type,
// creating the draft when none exists. The merge is a shallow top-level key
// union where the patch wins; nested objects in the patch replace stored
// ones wholesale.
func (s *Service) UpsertPatch(ctx context.Context, ownerID, formType string, patch map[string]any) (*caserec.CaseRecord, error) {
	if patch == nil {
		return nil, ErrInvalidPatch
	}
	formType = mapping.NormalizeForm(formType)

	release, err := s.locker.Acquire(ctx, lockKey(ownerID, formType))
	if err != nil {
		return nil, fmt.Errorf("lock draft: %w", err)
	}
	defer release()

	return s.upsertLocked(ctx, ownerID, formType, "", patch)
}

func (s *Service) upsertLocked(ctx context.Context, ownerID, formType, title string, patch map[string]any) (*caserec.CaseRecord, error) {
	rec, err := s.store.FindDraft(ctx, ownerID, formType)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec, err = s.applyExpiry(ctx, rec); err != nil {
			return nil, err
		}
	}

	if rec == nil {
		rec = caserec.New(ownerID, formType, title, patch, s.now())
		if err := s.store.Insert(ctx, rec); err != nil {
			return nil, fmt.Errorf("create draft: %w", err)
		}
		return rec, nil
	}

	rec.Data = document.Merge(rec.Data, patch)
	rec.UpdatedAt = s.now()
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return rec, nil
}

// Start is the explicit "begin a case" operation: find-or-create like
// UpsertPatch but with an optional title, reporting whether a new draft was
// created.
func (s *Service) Start(ctx context.Context, ownerID, formType, title string, initial map[string]any) (*caserec.CaseRecord, bool, error) {
	if initial == nil {
		initial = map[string]any{}
	}
	formType = mapping.NormalizeForm(formType)

	release, err := s.locker.Acquire(ctx, lockKey(ownerID, formType))
	if err != nil {
		return nil, false, fmt.Errorf("lock draft: %w", err)
	}
	defer release()

	existing, err := s.store.FindDraft(ctx, ownerID, formType)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing, err = s.applyExpiry(ctx, existing); err != nil {
			return nil, false, err
		}
	}
	created := existing == nil

	rec, err := s.upsertLocked(ctx, ownerID, formType, title, initial)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// Submit merges an optional final payload and promotes the draft to
// READY_FOR_REVIEW. Fails with ErrNoDraft when the owner has no live draft;
// nothing is written in that case.
func (s *Service) Submit(ctx context.Context, ownerID, formType string, finalPatch map[string]any) (*caserec.CaseRecord, error) {
	formType = mapping.NormalizeForm(formType)

	release, err := s.locker.Acquire(ctx, lockKey(ownerID, formType))
	if err != nil {
		return nil, fmt.Errorf("lock draft: %w", err)
	}
	defer release()

	rec, err := s.store.FindDraft(ctx, ownerID, formType)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec, err = s.applyExpiry(ctx, rec); err != nil {
			return nil, err
		}
	}
	if rec == nil {
		return nil, ErrNoDraft
	}

	if finalPatch != nil {
		rec.Data = document.Merge(rec.Data, finalPatch)
	}
	rec.Status = caserec.StatusReadyForReview
	rec.UpdatedAt = s.now()
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("submit draft: %w", err)
	}
	return rec, nil
}

// List returns the owner's cases, newest first, with draft expiry applied.
func (s *Service) List(ctx context.Context, ownerID string) ([]caserec.CaseRecord, error) {
	recs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range recs {
		if recs[i].StaleDraft(now) {
			recs[i].Status = caserec.StatusExpired
			recs[i].UpdatedAt = now
			if err := s.store.Update(ctx, &recs[i]); err != nil {
				return nil, fmt.Errorf("expire draft %s: %w", recs[i].ID, err)
			}
		}
	}
	return recs, nil
}

// Latest returns the owner's most recently updated case of a form type,
// regardless of status. Used by the render route so a just-submitted case
// can still be downloaded.
func (s *Service) Latest(ctx context.Context, ownerID, formType string) (*caserec.CaseRecord, error) {
	formType = mapping.NormalizeForm(formType)
	recs, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].Type == formType {
			return &recs[i], nil
		}
	}
	return nil, caserec.ErrNotFound
}
