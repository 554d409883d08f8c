// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model:
// creation, ordered listing, per-author listing, substring search, the
// following feed, and owner-scoped edits.
//
// Listing functions take an already validated PostSort; unknown values fall
// back to SortNewest. Search is a case-insensitive substring match on title
// and content; callers pass the term as typed.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// PostSort names an ordering for post listings.
type PostSort string

const (
	SortNewest     PostSort = "newest"
	SortOldest     PostSort = "oldest"
	SortMostLiked  PostSort = "most_liked"
	SortLeastLiked PostSort = "least_liked"
)

// Valid reports whether s is a known ordering.
func (s PostSort) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortMostLiked, SortLeastLiked:
		return true
	}
	return false
}

func (s PostSort) orderBy() string {
	switch s {
	case SortOldest:
		return "created_at asc, id asc"
	case SortMostLiked:
		return "like_count desc, created_at desc"
	case SortLeastLiked:
		return "like_count asc, created_at desc"
	default:
		return "created_at desc, id desc"
	}
}

// CreatePost inserts a post authored by authorID.
func CreatePost(ctx context.Context, db *gorm.DB, authorID, title, content string) (*domain.Post, error) {
	now := time.Now().UTC()
	p := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Omit("Author").Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPost fetches a post by id with its author.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPostsPage returns one page of all posts in the requested order.
func ListPostsPage(ctx context.Context, db *gorm.DB, sort PostSort, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Preload("Author").
		Order(sort.orderBy()).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPosts returns the total number of posts.
func CountPosts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Count(&total).Error
	return total, err
}

func searchScope(db *gorm.DB, term string) *gorm.DB {
	like := "%" + escapeLike(strings.ToLower(term)) + "%"
	return db.Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\'", like, like)
}

// escapeLike neutralises LIKE wildcards so the term matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchPostsPage returns posts whose title or content contains term.
func SearchPostsPage(ctx context.Context, db *gorm.DB, term string, sort PostSort, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := searchScope(db.WithContext(ctx).Preload("Author"), term).
		Order(sort.orderBy()).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSearchPosts returns the number of posts matching term.
func CountSearchPosts(ctx context.Context, db *gorm.DB, term string) (int64, error) {
	var total int64
	err := searchScope(db.WithContext(ctx).Model(&domain.Post{}), term).Count(&total).Error
	return total, err
}

func feedScope(db *gorm.DB, followerID string) *gorm.DB {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Model(&domain.Follow{}).
		Select("following_id").
		Where("follower_id = ?", followerID)
	return db.Where("author_id IN (?)", sub)
}

// ListFeedPage returns posts written by users that followerID follows, newest first.
func ListFeedPage(ctx context.Context, db *gorm.DB, followerID string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := feedScope(db.WithContext(ctx).Preload("Author"), followerID).
		Order(SortNewest.orderBy()).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountFeed returns the number of posts in followerID's following feed.
func CountFeed(ctx context.Context, db *gorm.DB, followerID string) (int64, error) {
	var total int64
	err := feedScope(db.WithContext(ctx).Model(&domain.Post{}), followerID).Count(&total).Error
	return total, err
}

// ListPostsByAuthorPage returns one page of authorID's posts, newest first.
func ListPostsByAuthorPage(ctx context.Context, db *gorm.DB, authorID string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order(SortNewest.orderBy()).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPostsByAuthor returns the number of posts written by authorID.
func CountPostsByAuthor(ctx context.Context, db *gorm.DB, authorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Where("author_id = ?", authorID).Count(&total).Error
	return total, err
}

// UpdatePost rewrites title and content of a post owned by authorID.
// It returns ErrNotFound when no such post exists for that author.
func UpdatePost(ctx context.Context, db *gorm.DB, id, authorID, title, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(map[string]any{"title": title, "content": content, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post owned by authorID. Likes, comments and
// notifications referencing it go with it through FK cascades.
func DeletePost(ctx context.Context, db *gorm.DB, id, authorID string) error {
	res := db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).Delete(&domain.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
