package handlers

import (
	"context"

	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/casa-vistamar/booking-api/internal/store"
	"github.com/danielgtaylor/huma/v2"
)

type TestimonialHandler struct {
	store *store.TestimonialStore
}

func NewTestimonialHandler(st *store.TestimonialStore) *TestimonialHandler {
	return &TestimonialHandler{store: st}
}

type SubmitTestimonialInput struct {
	Body struct {
		Name    string `json:"name" minLength:"1" doc:"Guest name"`
		Country string `json:"country,omitempty"`
		Text    string `json:"text" minLength:"1" maxLength:"2000"`
		Rating  int    `json:"rating" minimum:"1" maximum:"5"`
	}
}

type TestimonialOutput struct {
	Body models.Testimonial
}

// HandleSubmit stores a new testimonial unpublished; it only appears on the
// site after moderation.
func (h *TestimonialHandler) HandleSubmit(ctx context.Context, input *SubmitTestimonialInput) (*TestimonialOutput, error) {
	t, err := h.store.Create(ctx, &models.Testimonial{
		Name:    input.Body.Name,
		Country: input.Body.Country,
		Text:    input.Body.Text,
		Rating:  input.Body.Rating,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &TestimonialOutput{Body: *t}, nil
}

type ListTestimonialsInput struct {
	Limit  int `query:"limit" default:"20" minimum:"1" maximum:"100"`
	Offset int `query:"offset" minimum:"0"`
}

type ListTestimonialsOutput struct {
	Body struct {
		Items []*models.Testimonial `json:"items"`
		Total int                   `json:"total"`
	}
}

func (h *TestimonialHandler) HandlePublicList(ctx context.Context, input *ListTestimonialsInput) (*ListTestimonialsOutput, error) {
	return h.list(ctx, true, input.Limit, input.Offset)
}

func (h *TestimonialHandler) HandleAdminList(ctx context.Context, input *ListTestimonialsInput) (*ListTestimonialsOutput, error) {
	return h.list(ctx, false, input.Limit, input.Offset)
}

func (h *TestimonialHandler) list(ctx context.Context, publishedOnly bool, limit, offset int) (*ListTestimonialsOutput, error) {
	items, total, err := h.store.List(ctx, publishedOnly, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	res := &ListTestimonialsOutput{}
	res.Body.Items = items
	if res.Body.Items == nil {
		res.Body.Items = []*models.Testimonial{}
	}
	res.Body.Total = total
	return res, nil
}

type ModerateTestimonialInput struct {
	ID   string `path:"id" doc:"Testimonial id"`
	Body struct {
		Published bool `json:"published"`
	}
}

func (h *TestimonialHandler) HandleModerate(ctx context.Context, input *ModerateTestimonialInput) (*TestimonialOutput, error) {
	t, err := h.store.SetPublished(ctx, input.ID, input.Body.Published)
	if err != nil {
		return nil, mapError(err)
	}
	return &TestimonialOutput{Body: *t}, nil
}

type DeleteTestimonialInput struct {
	ID string `path:"id" doc:"Testimonial id"`
}

type DeleteTestimonialOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (h *TestimonialHandler) HandleDelete(ctx context.Context, input *DeleteTestimonialInput) (*DeleteTestimonialOutput, error) {
	ok, err := h.store.Delete(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	if !ok {
		return nil, huma.Error404NotFound("Testimonial not found")
	}
	res := &DeleteTestimonialOutput{}
	res.Body.Deleted = true
	return res, nil
}
