// Package domain defines the persistence models for users, posts, comments,
// likes, saved posts, follows, and notifications. These types are mapped
// with GORM and form the core data layer of the social backend.
package domain

import (
	"time"
)

// User is an account that can author posts, comment, like, follow, and
// receive notifications.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique login and display identifiers.
//   - PasswordHash: bcrypt hash, never serialized.
//   - Bio / AvatarURL: optional profile data used to enrich notifications.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(150);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(200);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Bio          string    `json:"bio"        gorm:"type:text"`
	AvatarURL    string    `json:"avatar_url" gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Post is a blog entry written by a user. LikeCount is a denormalized
// counter that always equals the number of PostLike rows for the post; both
// are mutated together inside a single transaction.
type Post struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	AuthorID  string    `json:"author_id"  gorm:"type:char(36);not null;index:idx_posts_author"`
	Title     string    `json:"title"      gorm:"type:varchar(200);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	LikeCount int64     `json:"likes"      gorm:"not null;default:0;check:like_count >= 0"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `json:"author" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// PostLike is the membership row of the post ↔ liking-user relation.
// The (post_id, user_id) pair is the primary key, so a user can like a post
// at most once.
type PostLike struct {
	PostID    string    `json:"post_id"    gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostLike.
func (PostLike) TableName() string { return "post_likes" }

// Comment is a user's reply on a post. ParentID links threaded replies to
// another comment of the same post.
type Comment struct {
	ID        string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	PostID    string    `json:"post_id"             gorm:"type:char(36);not null;index:idx_post_comments,priority:1"`
	UserID    string    `json:"user_id"             gorm:"type:char(36);not null;index"`
	ParentID  *string   `json:"parent_id,omitempty" gorm:"type:char(36);index"`
	Content   string    `json:"content"             gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"          gorm:"index:idx_post_comments,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	User    User       `json:"user"              gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Post    Post       `json:"-"                 gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Replies []*Comment `json:"replies,omitempty" gorm:"-"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Follow is a directed edge: FollowerID follows FollowingID. The pair is
// unique and a user can never follow themselves.
type Follow struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	FollowerID  string    `json:"follower_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_follow_pair,priority:1;check:chk_follow_not_self,follower_id <> following_id"`
	FollowingID string    `json:"following_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_follow_pair,priority:2"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  User `json:"-" gorm:"foreignKey:FollowerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Following User `json:"-" gorm:"foreignKey:FollowingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Follow.
func (Follow) TableName() string { return "follows" }

// SavedPost is a bookmark: UserID keeps PostID for later reading. Like
// PostLike, the pair is the primary key, so a post is saved at most once
// per user. Saving is private and never notifies the author.
type SavedPost struct {
	PostID    string    `json:"post_id"    gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);primaryKey;index:idx_saved_user,priority:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_saved_user,priority:2"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SavedPost.
func (SavedPost) TableName() string { return "saved_posts" }
