// Package services defines the business logic for posts, comments, likes,
// follows, accounts, and the notification pipeline. This file centralizes
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Notification Query/Action errors.
var (
	// ErrNoNotifications signals an empty notification list. It is a result,
	// not a failure: handlers answer 200 with an empty list.
	ErrNoNotifications = errors.New("no notifications")

	// ErrInvalidAction is returned for an action other than mark_read,
	// mark_unread or delete. The store is not touched.
	ErrInvalidAction = errors.New("invalid action")

	// ErrNotificationNotFound indicates the notification id does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrForbidden is returned when the principal is not the notification's recipient.
	ErrForbidden = errors.New("forbidden")
)

// Content errors.
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidParent   = errors.New("parent comment does not belong to this post")
	ErrEmptyContent    = errors.New("content is empty")
	ErrEmptyTitle      = errors.New("title is empty")
	ErrTooLong         = errors.New("content too long")
	ErrInvalidSort     = errors.New("invalid sort")
)

// Social graph and account errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrAlreadyFollowing   = errors.New("already following this user")
	ErrNotFollowing       = errors.New("not following this user")
	ErrUserTaken          = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidAvatarURL   = errors.New("avatar_url must be an absolute http(s) URL")
)
