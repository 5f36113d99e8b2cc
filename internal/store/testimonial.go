package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	testimonialKeyPrefix = "testimonial:"
	testimonialIndexKey  = "testimonials:index"
)

// TestimonialStore mirrors the reservation store's record + sorted index
// shape for guest testimonials.
type TestimonialStore struct {
	rdb      *redis.Client
	softFail bool
	logger   *logrus.Logger
}

func NewTestimonialStore(rdb *redis.Client, softFail bool, logger *logrus.Logger) *TestimonialStore {
	return &TestimonialStore{rdb: rdb, softFail: softFail, logger: logger}
}

func testimonialKey(id string) string {
	return testimonialKeyPrefix + id
}

func (s *TestimonialStore) Create(ctx context.Context, t *models.Testimonial) (*models.Testimonial, error) {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.Published = false
	t.CreatedAt = now
	t.UpdatedAt = now

	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, testimonialKey(t.ID), data, 0).Err(); err != nil {
		return nil, wrapErr(err)
	}
	if err := s.rdb.ZAdd(ctx, testimonialIndexKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: t.ID,
	}).Err(); err != nil {
		return nil, wrapErr(err)
	}
	return t, nil
}

func (s *TestimonialStore) Get(ctx context.Context, id string) (*models.Testimonial, error) {
	raw, err := s.rdb.Get(ctx, testimonialKey(id)).Result()
	if err != nil {
		wrapped := wrapErr(err)
		if errors.Is(wrapped, ErrUnavailable) && s.softFail {
			return nil, ErrNotFound
		}
		return nil, wrapped
	}
	var t models.Testimonial
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetPublished flips the moderation flag.
func (s *TestimonialStore) SetPublished(ctx context.Context, id string, published bool) (*models.Testimonial, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Published = published
	t.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, testimonialKey(id), data, 0).Err(); err != nil {
		return nil, wrapErr(err)
	}
	return t, nil
}

// List returns testimonials newest-first, optionally published-only.
func (s *TestimonialStore) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]*models.Testimonial, int, error) {
	ids, err := s.rdb.ZRevRange(ctx, testimonialIndexKey, 0, -1).Result()
	if err != nil {
		if s.softFail {
			if s.logger != nil {
				s.logger.WithField("component", "store").Warnf("backend unavailable, degrading to empty: %v", err)
			}
			return nil, 0, nil
		}
		return nil, 0, wrapErr(err)
	}

	var filtered []*models.Testimonial
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if publishedOnly && !t.Published {
			continue
		}
		filtered = append(filtered, t)
	}

	total := len(filtered)
	if limit <= 0 {
		limit = 20
	}
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (s *TestimonialStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, testimonialKey(id)).Result()
	if err != nil {
		return false, wrapErr(err)
	}
	if err := s.rdb.ZRem(ctx, testimonialIndexKey, id).Err(); err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}
