// Package gallery tags gallery images with admin-defined categories.
package gallery

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/kirinyoku/atelier/internal/domain"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/uow"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInvalidInput     = errors.New("invalid input")
)

var umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

type Service struct {
	store  *documentrepo.Store
	uow    *uow.UoW
	logger *slog.Logger
	now    func() time.Time
}

func New(store *documentrepo.Store, u *uow.UoW, logger *slog.Logger) *Service {
	return &Service{store: store, uow: u, logger: logger, now: time.Now}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.GalleryCategory, error) {
	const op = "service.gallery.ListCategories"

	cats, err := s.store.Categories().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	slices.SortStableFunc(cats, func(a, b domain.GalleryCategory) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return cats, nil
}

// CreateCategory adds a category. Names that map to the same slug collide.
func (s *Service) CreateCategory(ctx context.Context, name string) (domain.GalleryCategory, error) {
	const op = "service.gallery.CreateCategory"

	c := domain.GalleryCategory{
		ID:   domain.NewID("cat"),
		Name: strings.TrimSpace(name),
	}
	c.Slug = Slugify(c.Name)
	if c.Slug == "" {
		return domain.GalleryCategory{}, fmt.Errorf("%s:%w: name is required", op, ErrInvalidInput)
	}

	err := s.uow.Do(ctx, []string{documentrepo.CategoriesDoc}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
		cats, err := s.store.Categories().Load(ctx)
		if err != nil {
			return err
		}

		if slices.ContainsFunc(cats, func(x domain.GalleryCategory) bool { return x.Slug == c.Slug }) {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Slug)
		}

		return s.store.Categories().Save(ctx, append(cats, c))
	})
	if err != nil {
		return domain.GalleryCategory{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("gallery category created", "category_id", c.ID, "slug", c.Slug)

	return c, nil
}

// DeleteCategory removes the category and untags every image carrying it.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	const op = "service.gallery.DeleteCategory"

	err := s.uow.Do(ctx, []string{documentrepo.CategoriesDoc, documentrepo.ImagesDoc}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
		cats, err := s.store.Categories().Load(ctx)
		if err != nil {
			return err
		}

		kept := slices.DeleteFunc(cats, func(c domain.GalleryCategory) bool { return c.ID == id })
		if len(kept) == len(cats) {
			return ErrCategoryNotFound
		}

		images, err := s.store.Images().Load(ctx)
		if err != nil {
			return err
		}

		touched := false
		for i := range images {
			before := len(images[i].Categories)
			images[i].Categories = slices.DeleteFunc(images[i].Categories, func(c string) bool { return c == id })
			if len(images[i].Categories) != before {
				images[i].UpdatedAt = s.now().UTC()
				touched = true
			}
		}

		if touched {
			if err := s.store.Images().Save(ctx, images); err != nil {
				return err
			}
		}

		return s.store.Categories().Save(ctx, kept)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("gallery category deleted", "category_id", id)

	return nil
}

// SetImageCategories replaces the tags of one image. An empty list keeps
// the image but clears its tags.
func (s *Service) SetImageCategories(ctx context.Context, filename string, categoryIDs []string) (domain.ImageMetadata, error) {
	const op = "service.gallery.SetImageCategories"

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return domain.ImageMetadata{}, fmt.Errorf("%s:%w: filename is required", op, ErrInvalidInput)
	}

	ids := slices.Clone(categoryIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if ids == nil {
		ids = []string{}
	}

	var out domain.ImageMetadata

	err := s.uow.Do(ctx, []string{documentrepo.CategoriesDoc, documentrepo.ImagesDoc}, func(ctx context.Context, _ func(uow.AfterCommit)) error {
		cats, err := s.store.Categories().Load(ctx)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if !slices.ContainsFunc(cats, func(c domain.GalleryCategory) bool { return c.ID == id }) {
				return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, id)
			}
		}

		images, err := s.store.Images().Load(ctx)
		if err != nil {
			return err
		}

		out = domain.ImageMetadata{Filename: filename, Categories: ids, UpdatedAt: s.now().UTC()}

		i := slices.IndexFunc(images, func(m domain.ImageMetadata) bool { return m.Filename == filename })
		if i < 0 {
			images = append(images, out)
		} else {
			out.Title = images[i].Title
			images[i] = out
		}

		return s.store.Images().Save(ctx, images)
	})
	if err != nil {
		return domain.ImageMetadata{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListImages returns image metadata, optionally only images tagged with
// categoryID.
func (s *Service) ListImages(ctx context.Context, categoryID string) ([]domain.ImageMetadata, error) {
	const op = "service.gallery.ListImages"

	images, err := s.store.Images().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if categoryID != "" {
		images = slices.DeleteFunc(images, func(m domain.ImageMetadata) bool {
			return !slices.Contains(m.Categories, categoryID)
		})
	}

	slices.SortStableFunc(images, func(a, b domain.ImageMetadata) int {
		return cmp.Compare(a.Filename, b.Filename)
	})

	return images, nil
}

// Slugify lower-cases name, spells out German umlauts and joins the
// remaining letters and digits with single dashes.
func Slugify(name string) string {
	s := umlauts.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	dash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}

	return b.String()
}
