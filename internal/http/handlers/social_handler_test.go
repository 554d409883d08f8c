package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-social-backend/internal/repo"
	"github.com/tbourn/go-social-backend/internal/services"
)

func TestToggleLike(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.user(t, "alice")
	_, bobTok := e.user(t, "bob")
	p := e.post(t, alice.ID, "post")
	path := "/api/v1/posts/" + p.ID + "/like"

	w := e.do(http.MethodPost, path, bobTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	if got := decode[LikeResponse](t, w); got != (LikeResponse{Message: "Like added", Likes: 1, IsLiked: true}) {
		t.Fatalf("like = %+v", got)
	}
	if n, _ := repo.CountUnread(context.Background(), e.db, alice.ID); n != 1 {
		t.Fatalf("alice unread = %d; want 1", n)
	}

	w = e.do(http.MethodPost, path, bobTok, nil)
	if got := decode[LikeResponse](t, w); got != (LikeResponse{Message: "Like removed", Likes: 0, IsLiked: false}) {
		t.Fatalf("unlike = %+v", got)
	}
	if n, _ := repo.CountUnread(context.Background(), e.db, alice.ID); n != 0 {
		t.Fatalf("unlike must retract the notification; unread = %d", n)
	}

	w = e.do(http.MethodPost, "/api/v1/posts/missing/like", bobTok, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "Post does not exists")
}

func TestFollowLifecycle(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.user(t, "alice")
	bob, _ := e.user(t, "bob")

	w := e.do(http.MethodPost, "/api/v1/follows", aliceTok, FollowRequest{Following: bob.ID})
	if w.Code != http.StatusCreated || decode[MessageResponse](t, w).Detail != "Followed Successfully" {
		t.Fatalf("follow: %d %s", w.Code, w.Body.String())
	}

	w = e.do(http.MethodPost, "/api/v1/follows", aliceTok, FollowRequest{Following: bob.ID})
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Already following this user.")

	w = e.do(http.MethodPost, "/api/v1/follows", aliceTok, FollowRequest{Following: alice.ID})
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "You cannot follow yourself.")

	w = e.do(http.MethodPost, "/api/v1/follows", aliceTok, FollowRequest{Following: "ghost"})
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "User not found.")

	w = e.do(http.MethodPost, "/api/v1/follows", aliceTok, "{}")
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "")

	w = e.do(http.MethodGet, "/api/v1/follows/"+bob.ID+"/status", aliceTok, nil)
	if !decode[FollowStatusResponse](t, w).IsFollowing {
		t.Fatalf("status should report following: %s", w.Body.String())
	}

	w = e.do(http.MethodGet, "/api/v1/users/"+bob.ID+"/follow-counts", "", nil)
	if got := decode[services.FollowCounts](t, w); got.Followers != 1 || got.Following != 0 {
		t.Fatalf("bob counts = %+v", got)
	}
	if n, _ := repo.CountUnread(context.Background(), e.db, bob.ID); n != 1 {
		t.Fatalf("bob unread = %d; want 1", n)
	}

	w = e.do(http.MethodDelete, "/api/v1/follows/"+bob.ID, aliceTok, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unfollow status = %d", w.Code)
	}
	if n, _ := repo.CountUnread(context.Background(), e.db, bob.ID); n != 0 {
		t.Fatalf("unfollow must retract the notification; unread = %d", n)
	}

	w = e.do(http.MethodDelete, "/api/v1/follows/"+bob.ID, aliceTok, nil)
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "You are not following this user.")

	w = e.do(http.MethodDelete, "/api/v1/follows/ghost", aliceTok, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "User not found.")

	w = e.do(http.MethodGet, "/api/v1/follows/ghost/status", aliceTok, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "")
}

func TestGetUserProfile(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.user(t, "alice")

	w := e.do(http.MethodGet, "/api/v1/users/"+alice.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["username"] != "alice" {
		t.Fatalf("profile = %v", got)
	}

	w = e.do(http.MethodGet, "/api/v1/users/ghost", "", nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "User not found.")
	w = e.do(http.MethodGet, "/api/v1/users/ghost/follow-counts", "", nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "")
}

func TestOwnProfile_GetAndUpdate(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.user(t, "alice")

	w := e.do(http.MethodGet, "/api/v1/users/me", "", nil)
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized, "")

	w = e.do(http.MethodPut, "/api/v1/users/me", aliceTok, ProfileRequest{Bio: "Writes Go", AvatarURL: "https://cdn.example.com/a.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d; body=%s", w.Code, w.Body.String())
	}
	if got := decode[map[string]any](t, w); got["bio"] != "Writes Go" || got["avatar_url"] != "https://cdn.example.com/a.png" {
		t.Fatalf("updated profile = %v", got)
	}

	w = e.do(http.MethodGet, "/api/v1/users/me", aliceTok, nil)
	if got := decode[map[string]any](t, w); got["id"] != alice.ID || got["bio"] != "Writes Go" {
		t.Fatalf("me = %v", got)
	}
	// The public profile reflects the edit.
	if got := decode[map[string]any](t, e.do(http.MethodGet, "/api/v1/users/"+alice.ID, "", nil)); got["bio"] != "Writes Go" {
		t.Fatalf("public profile = %v", got)
	}

	w = e.do(http.MethodPut, "/api/v1/users/me", aliceTok, ProfileRequest{AvatarURL: "ftp://x/a.png"})
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "")
	w = e.do(http.MethodPut, "/api/v1/users/me", aliceTok, ProfileRequest{Bio: strings.Repeat("x", 501)})
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "")
	w = e.do(http.MethodPut, "/api/v1/users/me", aliceTok, "{")
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
}

func TestUserPosts(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.user(t, "alice")
	bob, _ := e.user(t, "bob")
	e.post(t, alice.ID, "first")
	e.post(t, bob.ID, "elsewhere")
	e.post(t, alice.ID, "second")

	w := e.do(http.MethodGet, "/api/v1/users/"+alice.ID+"/posts?page=1&page_size=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	list := decode[PostListResponse](t, w)
	if len(list.Posts) != 1 || list.Posts[0].AuthorID != alice.ID || list.Pagination.Total != 2 || !list.Pagination.HasNext {
		t.Fatalf("author posts = %+v", list)
	}

	w = e.do(http.MethodGet, "/api/v1/users/ghost/posts", "", nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound, "User not found.")
}
