package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/repo"
)

// PostSnippet is the slice of a post needed to phrase a notification.
type PostSnippet struct {
	Title    string
	AuthorID string
}

// ContentLookup resolves posts for message enrichment.
type ContentLookup interface {
	PostSnippet(ctx context.Context, postID string) (*PostSnippet, error)
}

// Directory answers user and content lookups from the relational store.
// It backs WebSocket admission, notification messages and public profiles,
// and owns edits to the caller's own profile.
type Directory struct {
	DB *gorm.DB
}

// LookupUser returns the user, or (nil, nil) when no such user exists.
func (d *Directory) LookupUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, d.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// Profile returns the public profile of id or ErrUserNotFound.
func (d *Directory) Profile(ctx context.Context, id string) (*domain.User, error) {
	u, err := d.LookupUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// PostSnippet returns a post's title and author, or ErrPostNotFound.
func (d *Directory) PostSnippet(ctx context.Context, postID string) (*PostSnippet, error) {
	var row PostSnippet
	res := d.DB.WithContext(ctx).
		Model(&domain.Post{}).
		Select("title, author_id").
		Where("id = ?", postID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return &row, nil
}

// ProfileUpdate is the editable part of a user's own profile. Empty values
// clear the field.
type ProfileUpdate struct {
	Bio       string `validate:"max=500"`
	AvatarURL string `validate:"omitempty,max=512,http_url"`
}

var profileRules = validator.New()

// UpdateProfile replaces the bio and avatar of userID and returns the
// updated profile. A bio over 500 characters returns ErrTooLong; an avatar
// that is not an absolute http(s) URL returns ErrInvalidAvatarURL.
func (d *Directory) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*domain.User, error) {
	tr := otel.Tracer("services/Directory")
	ctx, span := tr.Start(ctx, "UpdateProfile", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	in.Bio = strings.TrimSpace(in.Bio)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := profileRules.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "AvatarURL" {
			return nil, ErrInvalidAvatarURL
		}
		return nil, ErrTooLong
	}

	if err := repo.UpdateUserProfile(ctx, d.DB, userID, in.Bio, in.AvatarURL); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.GetUser(ctx, d.DB, userID)
}
