package documentrepo

import (
	"context"

	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/domain"
)

// Document names as persisted on every backend.
const (
	SlotsDoc            = "time-slots.json"
	BookingsDoc         = "bookings.json"
	WorkshopsDoc        = "workshops.json"
	WorkshopBookingsDoc = "workshop-bookings.json"
	CategoriesDoc       = "gallery-categories.json"
	ImagesDoc           = "image-metadata.json"
	ReviewsDoc          = "reviews.json"
)

// Collection is a typed view of one document holding a JSON array.
type Collection[T any] struct {
	docs docstore.Store
	name string
}

func (c *Collection[T]) Name() string { return c.name }

// Load returns every record, or an empty slice when the document is missing.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	return docstore.Read(ctx, c.docs, c.name, []T{})
}

func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return docstore.Write(ctx, c.docs, c.name, items)
}

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) Slots() *Collection[domain.TimeSlot] {
	return &Collection[domain.TimeSlot]{docs: s.docs, name: SlotsDoc}
}

func (s *Store) Bookings() *Collection[domain.Booking] {
	return &Collection[domain.Booking]{docs: s.docs, name: BookingsDoc}
}

func (s *Store) Workshops() *Collection[domain.Workshop] {
	return &Collection[domain.Workshop]{docs: s.docs, name: WorkshopsDoc}
}

func (s *Store) WorkshopBookings() *Collection[domain.WorkshopBooking] {
	return &Collection[domain.WorkshopBooking]{docs: s.docs, name: WorkshopBookingsDoc}
}

func (s *Store) Categories() *Collection[domain.GalleryCategory] {
	return &Collection[domain.GalleryCategory]{docs: s.docs, name: CategoriesDoc}
}

func (s *Store) Images() *Collection[domain.ImageMetadata] {
	return &Collection[domain.ImageMetadata]{docs: s.docs, name: ImagesDoc}
}

func (s *Store) Reviews() *Collection[domain.Review] {
	return &Collection[domain.Review]{docs: s.docs, name: ReviewsDoc}
}
