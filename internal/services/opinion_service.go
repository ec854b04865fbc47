// Package services – OpinionService
//
// This file implements OpinionService, which owns the lifecycle of opinions.
// It normalizes text input, enforces the unique-text rule and coordinates
// repository calls inside transactions. The pre-write existence check yields
// ErrDuplicateText in the common case; the ux_opinions_text index catches the
// concurrent case and is reported the same way.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-opinions-backend/internal/domain"
	"github.com/tbourn/go-opinions-backend/internal/repo"
)

// OpinionRepo defines the repository contract required by OpinionService.
type OpinionRepo interface {
	CreateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error
	GetOpinion(ctx context.Context, db *gorm.DB, id uint) (*domain.Opinion, error)
	ListOpinions(ctx context.Context, db *gorm.DB) ([]domain.Opinion, error)
	TextTaken(ctx context.Context, db *gorm.DB, text string) (bool, error)
	UpdateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error
	DeleteOpinion(ctx context.Context, db *gorm.DB, id uint) error
	RandomOpinion(ctx context.Context, db *gorm.DB) (*domain.Opinion, error)
}

// OpinionService provides create, read, update, delete, list and random
// selection over opinions.
type OpinionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the opinion repository used by this service.
	Repo OpinionRepo
}

// NewOpinionService constructs an OpinionService.
func NewOpinionService(db *gorm.DB, r OpinionRepo) *OpinionService {
	return &OpinionService{DB: db, Repo: r}
}

func tracer() trace.Tracer { return otel.Tracer("services/OpinionService") }

// Create validates and stores a new opinion. Title and text are required;
// text must not be used by any existing opinion.
func (s *OpinionService) Create(ctx context.Context, in domain.Opinion) (*domain.Opinion, error) {
	ctx, span := tracer().Start(ctx, "Create")
	defer span.End()

	o := &domain.Opinion{
		Title:   normalize(in.Title),
		Text:    normalize(in.Text),
		Source:  normalizePtr(in.Source),
		AddedBy: normalizePtr(in.AddedBy),
	}
	if blank(o.Title) || blank(o.Text) {
		return nil, ErrMissingFields
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.Repo.TextTaken(ctx, tx, o.Text)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateText
		}
		return s.Repo.CreateOpinion(ctx, tx, o)
	})
	if err != nil {
		return nil, translate(err)
	}
	span.SetAttributes(attribute.Int64("opinion.id", int64(o.ID)))
	return o, nil
}

// Get returns the opinion with id or ErrOpinionNotFound.
func (s *OpinionService) Get(ctx context.Context, id uint) (*domain.Opinion, error) {
	ctx, span := tracer().Start(ctx, "Get", trace.WithAttributes(attribute.Int64("opinion.id", int64(id))))
	defer span.End()

	o, err := s.Repo.GetOpinion(ctx, s.DB, id)
	if err != nil {
		return nil, translate(err)
	}
	return o, nil
}

// List returns every opinion ordered by id.
func (s *OpinionService) List(ctx context.Context) ([]domain.Opinion, error) {
	ctx, span := tracer().Start(ctx, "List")
	defer span.End()

	out, err := s.Repo.ListOpinions(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("opinions.count", len(out)))
	return out, nil
}

// Update overlays the Set fields of patch onto opinion id. When the patch
// carries text already stored on any opinion, id included, it fails with
// ErrDuplicateText, checked before the existence of id.
func (s *OpinionService) Update(ctx context.Context, id uint, patch domain.OpinionPatch) (*domain.Opinion, error) {
	ctx, span := tracer().Start(ctx, "Update", trace.WithAttributes(attribute.Int64("opinion.id", int64(id))))
	defer span.End()

	patch = normalizePatch(patch)
	if requiredCleared(patch.Title) || requiredCleared(patch.Text) {
		return nil, ErrMissingFields
	}

	var out *domain.Opinion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.Text.Set {
			taken, err := s.Repo.TextTaken(ctx, tx, patch.Text.Value)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateText
			}
		}
		o, err := s.Repo.GetOpinion(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(o)
		if err := s.Repo.UpdateOpinion(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Delete removes opinion id or returns ErrOpinionNotFound.
func (s *OpinionService) Delete(ctx context.Context, id uint) error {
	ctx, span := tracer().Start(ctx, "Delete", trace.WithAttributes(attribute.Int64("opinion.id", int64(id))))
	defer span.End()

	return translate(s.Repo.DeleteOpinion(ctx, s.DB, id))
}

// Random returns a randomly chosen opinion or ErrNoOpinions.
func (s *OpinionService) Random(ctx context.Context) (*domain.Opinion, error) {
	ctx, span := tracer().Start(ctx, "Random")
	defer span.End()

	o, err := s.Repo.RandomOpinion(ctx, s.DB)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoOpinions
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// translate maps repository errors onto service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrOpinionNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return ErrDuplicateText
	default:
		return err
	}
}

// normalize converts s to Unicode NFC so canonically equivalent texts
// compare equal in the unique index.
func normalize(s string) string { return norm.NFC.String(s) }

func normalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := normalize(*p)
	return &v
}

func normalizePatch(p domain.OpinionPatch) domain.OpinionPatch {
	for _, f := range []*domain.Optional[string]{&p.Title, &p.Text, &p.Source, &p.AddedBy} {
		if f.Set && !f.Null {
			f.Value = normalize(f.Value)
		}
	}
	return p
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// requiredCleared reports whether a patch tries to null out or blank a
// required column.
func requiredCleared(f domain.Optional[string]) bool {
	return f.Set && (f.Null || blank(f.Value))
}
