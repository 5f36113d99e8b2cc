package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/casa-vistamar/booking-api/internal/token"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	reservationKeyPrefix = "reservation:"
	reservationIndexKey  = "reservations:index"
	confirmKeyPrefix     = "reservation:confirm:"

	// casRetries bounds how often a WATCH-based transition is retried when
	// the key changes between read and write.
	casRetries = 3
)

// ReservationStore persists reservations as JSON records with a separate
// newest-first sorted index. The record and the index are two independent
// writes; at this write volume an orphaned index entry after a crash is
// tolerated.
type ReservationStore struct {
	rdb      *redis.Client
	softFail bool
	logger   *logrus.Logger
}

func NewReservationStore(rdb *redis.Client, softFail bool, logger *logrus.Logger) *ReservationStore {
	return &ReservationStore{rdb: rdb, softFail: softFail, logger: logger}
}

func reservationKey(id string) string {
	return reservationKeyPrefix + id
}

func confirmKey(tok string) string {
	return confirmKeyPrefix + tok
}

// Create allocates the id and capability token, stamps timestamps, writes
// the record and appends it to the index. Ids are generated, never
// user-supplied, so duplicate-content failures cannot happen.
func (s *ReservationStore) Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.CapabilityToken = token.NewCapability()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	if err := s.rdb.Set(ctx, reservationKey(r.ID), data, 0).Err(); err != nil {
		return nil, wrapErr(err)
	}
	if err := s.rdb.ZAdd(ctx, reservationIndexKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: r.ID,
	}).Err(); err != nil {
		return nil, wrapErr(err)
	}
	return r, nil
}

func (s *ReservationStore) Get(ctx context.Context, id string) (*models.Reservation, error) {
	raw, err := s.rdb.Get(ctx, reservationKey(id)).Result()
	if err != nil {
		return nil, s.readErr(err)
	}
	var r models.Reservation
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByCapabilityToken returns the record only when the stored token matches
// the presented one exactly. A mismatch is reported as not-found.
func (s *ReservationStore) GetByCapabilityToken(ctx context.Context, id, tok string) (*models.Reservation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tok == "" || r.CapabilityToken != tok {
		return nil, ErrNotFound
	}
	return r, nil
}

// GetByConfirmationToken resolves a confirmation token through its secondary
// index key. At most one record matches; token entropy makes collisions
// negligible.
func (s *ReservationStore) GetByConfirmationToken(ctx context.Context, tok string) (*models.Reservation, error) {
	if tok == "" {
		return nil, ErrNotFound
	}
	id, err := s.rdb.Get(ctx, confirmKey(tok)).Result()
	if err != nil {
		return nil, s.readErr(err)
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ConfirmationToken != tok {
		return nil, ErrNotFound
	}
	return r, nil
}

// UpdateFields is a partial update; nil pointers leave the field untouched.
// An empty update is valid and used deliberately to touch a record.
type UpdateFields struct {
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Guests        *int
	Message       *string
	AdminNotes    *string
	DepositAmount *float64
	NightlyRate   *float64
	Discount      *float64
	CleaningFee   *float64
	TouristTax    *float64
}

// Update merges the provided fields and bumps updatedAt. If any pricing
// component changed, the total is recomputed so the pricing invariant holds.
func (s *ReservationStore) Update(ctx context.Context, id string, f UpdateFields) (*models.Reservation, error) {
	return s.Transition(ctx, id, nil, func(r *models.Reservation) error {
		if f.FirstName != nil {
			r.FirstName = *f.FirstName
		}
		if f.LastName != nil {
			r.LastName = *f.LastName
		}
		if f.Email != nil {
			r.Email = *f.Email
		}
		if f.Phone != nil {
			r.Phone = *f.Phone
		}
		if f.Guests != nil {
			r.Guests = *f.Guests
		}
		if f.Message != nil {
			r.Message = *f.Message
		}
		if f.AdminNotes != nil {
			r.AdminNotes = *f.AdminNotes
		}
		if f.DepositAmount != nil {
			r.DepositAmount = *f.DepositAmount
		}

		repriced := false
		if f.NightlyRate != nil {
			r.Pricing.NightlyRate = *f.NightlyRate
			r.Pricing.Subtotal = *f.NightlyRate * float64(r.Pricing.Nights)
			repriced = true
		}
		if f.Discount != nil {
			r.Pricing.Discount = *f.Discount
			repriced = true
		}
		if f.CleaningFee != nil {
			r.Pricing.CleaningFee = *f.CleaningFee
			repriced = true
		}
		if f.TouristTax != nil {
			r.Pricing.TouristTax = *f.TouristTax
			repriced = true
		}
		if repriced {
			r.Pricing.Total = r.Pricing.Subtotal - r.Pricing.Discount + r.Pricing.CleaningFee + r.Pricing.TouristTax
		}
		return nil
	})
}

// Transition applies mutate to the record under optimistic concurrency
// control. When allowed is non-empty the record must currently be in one of
// those states, otherwise a StateError is returned. A WATCH race is retried
// a few times and then surfaces as ErrConflict, so a side-effecting state
// change is never applied twice.
func (s *ReservationStore) Transition(ctx context.Context, id string, allowed []models.Status, mutate func(*models.Reservation) error) (*models.Reservation, error) {
	key := reservationKey(id)
	var out *models.Reservation

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			return s.readErr(err)
		}
		var r models.Reservation
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return err
		}

		if len(allowed) > 0 && !statusAllowed(r.Status, allowed) {
			return &StateError{Current: r.Status}
		}

		hadConfirm := r.ConfirmationToken != ""
		if err := mutate(&r); err != nil {
			return err
		}
		r.UpdatedAt = time.Now().UTC()
		r.Version++

		data, err := json.Marshal(&r)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if !hadConfirm && r.ConfirmationToken != "" {
				pipe.Set(ctx, confirmKey(r.ConfirmationToken), r.ID, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = &r
		return nil
	}

	for i := 0; i < casRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

// ListOptions filters and pages the admin index.
type ListOptions struct {
	Status *models.Status
	Limit  int
	Offset int
}

// List walks the index newest-first. Total reflects the post-filter count,
// not the unfiltered store size.
func (s *ReservationStore) List(ctx context.Context, opts ListOptions) ([]*models.Reservation, int, error) {
	ids, err := s.rdb.ZRevRange(ctx, reservationIndexKey, 0, -1).Result()
	if err != nil {
		if s.softFail {
			s.logWarn(err)
			return nil, 0, nil
		}
		return nil, 0, wrapErr(err)
	}

	var filtered []*models.Reservation
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Orphaned index entry; skip it.
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if opts.Status != nil && r.Status != *opts.Status {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// Delete removes the record, its index entry and any confirmation-token key.
func (s *ReservationStore) Delete(ctx context.Context, id string) (bool, error) {
	r, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.rdb.Del(ctx, reservationKey(id)).Err(); err != nil {
		return false, wrapErr(err)
	}
	if err := s.rdb.ZRem(ctx, reservationIndexKey, id).Err(); err != nil {
		return false, wrapErr(err)
	}
	if r.ConfirmationToken != "" {
		if err := s.rdb.Del(ctx, confirmKey(r.ConfirmationToken)).Err(); err != nil {
			return false, wrapErr(err)
		}
	}
	return true, nil
}

// readErr applies the soft-fail mode: backend failures on the read path
// degrade to not-found so local development works without redis.
func (s *ReservationStore) readErr(err error) error {
	wrapped := wrapErr(err)
	if errors.Is(wrapped, ErrUnavailable) && s.softFail {
		s.logWarn(err)
		return ErrNotFound
	}
	return wrapped
}

func (s *ReservationStore) logWarn(err error) {
	if s.logger != nil {
		s.logger.WithField("component", "store").Warnf("backend unavailable, degrading to empty: %v", err)
	}
}

func statusAllowed(st models.Status, allowed []models.Status) bool {
	for _, a := range allowed {
		if st == a {
			return true
		}
	}
	return false
}
