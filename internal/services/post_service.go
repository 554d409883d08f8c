// Package services – PostService
//
// PostService owns post CRUD, ordered listing, per-author listing, substring
// search and the following feed. Listing is offset paged; search is a case-insensitive
// substring match.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/repo"
)

// PostService coordinates post persistence.
type PostService struct {
	DB *gorm.DB

	MaxTitleRunes   int
	MaxContentRunes int
}

func (s *PostService) validate(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return "", "", ErrEmptyTitle
	}
	if content == "" {
		return "", "", ErrEmptyContent
	}
	maxTitle := s.MaxTitleRunes
	if maxTitle <= 0 {
		maxTitle = 200
	}
	if utf8.RuneCountInString(title) > maxTitle {
		return "", "", ErrTooLong
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return "", "", ErrTooLong
	}
	return title, content, nil
}

// Create stores a new post by authorID.
func (s *PostService) Create(ctx context.Context, authorID, title, content string) (*domain.Post, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", authorID)))
	defer span.End()

	title, content, err := s.validate(title, content)
	if err != nil {
		return nil, err
	}
	p, err := repo.CreatePost(ctx, s.DB, authorID, title, content)
	if err != nil {
		return nil, err
	}
	return repo.GetPost(ctx, s.DB, p.ID)
}

// Get returns a post or ErrPostNotFound.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}

func parseSort(sort string) (repo.PostSort, error) {
	if sort == "" {
		return repo.SortNewest, nil
	}
	ps := repo.PostSort(strings.ToLower(strings.TrimSpace(sort)))
	if !ps.Valid() {
		return "", ErrInvalidSort
	}
	return ps, nil
}

// List returns one page of posts in the requested order
// (newest, oldest, most_liked, least_liked) and the total count.
func (s *PostService) List(ctx context.Context, sort string, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("sort", sort),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	ps, err := parseSort(sort)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountPosts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListPostsPage(ctx, s.DB, ps, offset, limit)
	return items, total, err
}

var searchFolder = cases.Lower(language.Und)

// Search returns posts whose title or content contains q, ignoring case.
// A blank query matches nothing.
func (s *PostService) Search(ctx context.Context, q, sort string, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "Search", trace.WithAttributes(attribute.String("query", q)))
	defer span.End()

	term := searchFolder.String(strings.Join(strings.Fields(q), " "))
	if term == "" {
		return []domain.Post{}, 0, nil
	}
	ps, err := parseSort(sort)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountSearchPosts(ctx, s.DB, term)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.SearchPostsPage(ctx, s.DB, term, ps, offset, limit)
	return items, total, err
}

// Feed returns posts by users that userID follows, newest first.
func (s *PostService) Feed(ctx context.Context, userID string, page, pageSize int) ([]domain.Post, int64, error) {
	total, err := repo.CountFeed(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListFeedPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// ByAuthor returns one page of authorID's posts, newest first. An unknown
// author returns ErrUserNotFound rather than an empty page.
func (s *PostService) ByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/PostService")
	ctx, span := tr.Start(ctx, "ByAuthor", trace.WithAttributes(attribute.String("author.id", authorID)))
	defer span.End()

	exists, err := repo.UserExists(ctx, s.DB, authorID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrUserNotFound
	}
	total, err := repo.CountPostsByAuthor(ctx, s.DB, authorID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListPostsByAuthorPage(ctx, s.DB, authorID, offset, limit)
	return items, total, err
}

// Update edits a post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, id, title, content string) (*domain.Post, error) {
	title, content, err := s.validate(title, content)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := repo.UpdatePost(ctx, s.DB, id, userID, title, content); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return repo.GetPost(ctx, s.DB, id)
}

// Delete removes a post owned by userID.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	if err := s.ensureOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := repo.DeletePost(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

// ensureOwner distinguishes a missing post from someone else's post.
func (s *PostService) ensureOwner(ctx context.Context, userID, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return ErrForbidden
	}
	return nil
}
