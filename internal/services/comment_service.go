// Package services – CommentService
//
// CommentService validates and stores comments and threaded replies, and
// emits EventCommentCreated once the row is committed. Retried creates that
// carry an idempotency key replay the comment recorded for (user, post, key).
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/repo"
)

const defaultMaxCommentRunes = 2000

// CommentService coordinates comment persistence and event emission.
type CommentService struct {
	DB     *gorm.DB
	Events Emitter

	MaxContentRunes int
	IdempotencyTTL  time.Duration
}

var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings, collapses runs of blank lines and
// trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// MaxRunes reports the effective comment length limit.
func (s *CommentService) MaxRunes() int {
	if s.MaxContentRunes > 0 {
		return s.MaxContentRunes
	}
	return defaultMaxCommentRunes
}

func (s *CommentService) cleanContent(raw string) (string, error) {
	content := sanitizeContent(raw)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.MaxRunes() {
		return "", ErrTooLong
	}
	return content, nil
}

// Create stores a comment on postID. A non-nil parentID makes it a reply and
// must name a comment on the same post.
func (s *CommentService) Create(ctx context.Context, userID, postID string, parentID *string, content string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("post.id", postID),
		),
	)
	defer span.End()

	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	post, err := repo.GetPost(ctx, s.DB, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := repo.GetComment(ctx, s.DB, *parentID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrInvalidParent
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, ErrInvalidParent
		}
	}

	c, err := repo.CreateComment(ctx, s.DB, postID, userID, parentID, content)
	if err != nil {
		return nil, err
	}

	emit(s.Events, ctx, Event{
		Type:      EventCommentCreated,
		ActorID:   userID,
		TargetID:  post.AuthorID,
		PostID:    postID,
		CommentID: c.ID,
	})

	return repo.GetComment(ctx, s.DB, c.ID)
}

// Replay returns the comment previously created for (userID, postID, key),
// or (nil, nil) when there is none.
func (s *CommentService) Replay(ctx context.Context, userID, postID, key string) (*domain.Comment, error) {
	if key == "" {
		return nil, nil
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, postID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := repo.GetComment(ctx, s.DB, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		// The comment was deleted since; treat the key as fresh.
		return nil, nil
	}
	return c, err
}

// Remember records the comment produced for (userID, postID, key). A key that
// is already recorded is left untouched.
func (s *CommentService) Remember(ctx context.Context, userID, postID, key, commentID string, status int) error {
	if key == "" {
		return nil
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, postID, key, commentID, status, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// List returns the comments of postID as a forest: top-level comments oldest
// first, each carrying its replies. Replies whose parent is missing are
// promoted to the top level.
func (s *CommentService) List(ctx context.Context, postID string) ([]*domain.Comment, error) {
	if _, err := s.ensurePost(ctx, postID); err != nil {
		return nil, err
	}
	flat, err := repo.ListComments(ctx, s.DB, postID)
	if err != nil {
		return nil, err
	}
	return threadComments(flat), nil
}

func threadComments(flat []*domain.Comment) []*domain.Comment {
	byID := make(map[string]*domain.Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}
	roots := make([]*domain.Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

// Update edits a comment owned by userID.
func (s *CommentService) Update(ctx context.Context, userID, id, content string) (*domain.Comment, error) {
	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := repo.UpdateCommentContent(ctx, s.DB, id, userID, content); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return repo.GetComment(ctx, s.DB, id)
}

// Delete removes a comment owned by userID along with its replies.
func (s *CommentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.ensureOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := repo.DeleteComment(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	return nil
}

// Stats returns the comment count and latest edit time of postID, used for
// conditional GETs.
func (s *CommentService) Stats(ctx context.Context, postID string) (int64, *time.Time, error) {
	return repo.CommentsStats(ctx, s.DB, postID)
}

func (s *CommentService) ensurePost(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (s *CommentService) ensureOwner(ctx context.Context, userID, id string) error {
	c, err := repo.GetComment(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if c.UserID != userID {
		return ErrForbidden
	}
	return nil
}
