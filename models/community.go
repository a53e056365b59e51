package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// CommunityPost is soft deleted; DeletedBy keeps who removed it.
type CommunityPost struct {
	ID         uint               `json:"id" gorm:"primaryKey"`
	AuthorID   uint               `json:"authorId" gorm:"index;not null"`
	AuthorRole Role               `json:"authorRole" gorm:"type:varchar(20);not null"`
	AuthorName string             `json:"authorName"`
	Title      string             `json:"title" gorm:"size:200;not null"`
	Content    string             `json:"content" gorm:"type:text;not null"`
	IsNotice   bool               `json:"isNotice" gorm:"default:false"`
	IsPinned   bool               `json:"isPinned" gorm:"default:false"`
	ViewCount  int                `json:"viewCount" gorm:"default:0"`
	Comments   []CommunityComment `json:"comments,omitempty" gorm:"foreignKey:PostID"`
	LikeCount  int64              `json:"likeCount" gorm:"-"`
	CommentCnt int64              `json:"commentCount" gorm:"-"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt     `json:"-" gorm:"index"`
	DeletedBy  *uint              `json:"-"`
}

type CommunityComment struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	PostID     uint           `json:"postId" gorm:"index;not null"`
	AuthorID   uint           `json:"authorId" gorm:"index;not null"`
	AuthorRole Role           `json:"authorRole" gorm:"type:varchar(20);not null"`
	AuthorName string         `json:"authorName"`
	Content    string         `json:"content" gorm:"size:1000;not null"`
	LikeCount  int64          `json:"likeCount" gorm:"-"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	DeletedBy  *uint          `json:"-"`
}

// CommunityPostLike allows one like per post per account.
type CommunityPostLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"postId" gorm:"uniqueIndex:idx_post_like;not null"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex:idx_post_like;not null"`
	UserRole  Role      `json:"userRole" gorm:"type:varchar(20);uniqueIndex:idx_post_like;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommunityCommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"commentId" gorm:"uniqueIndex:idx_comment_like;not null"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex:idx_comment_like;not null"`
	UserRole  Role      `json:"userRole" gorm:"type:varchar(20);uniqueIndex:idx_comment_like;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// SoftDelete marks the post deleted by userID.
func (p *CommunityPost) SoftDelete(tx *gorm.DB, userID uint) error {
	if err := tx.Model(p).UpdateColumn("deleted_by", userID).Error; err != nil {
		return err
	}
	return tx.Delete(p).Error
}

func (c *CommunityComment) SoftDelete(tx *gorm.DB, userID uint) error {
	if err := tx.Model(c).UpdateColumn("deleted_by", userID).Error; err != nil {
		return err
	}
	return tx.Delete(c).Error
}

// LikePost records a like and returns the new like count.
func LikePost(tx *gorm.DB, postID, userID uint, role Role) (int64, error) {
	var existing CommunityPostLike
	err := tx.Where("post_id = ? AND user_id = ? AND user_role = ?", postID, userID, role).First(&existing).Error
	if err == nil {
		return 0, ErrAlreadyLiked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err := tx.Create(&CommunityPostLike{PostID: postID, UserID: userID, UserRole: role}).Error; err != nil {
		return 0, err
	}
	return CountPostLikes(tx, postID)
}

// UnlikePost removes a like and returns the new like count.
func UnlikePost(tx *gorm.DB, postID, userID uint, role Role) (int64, error) {
	res := tx.Where("post_id = ? AND user_id = ? AND user_role = ?", postID, userID, role).Delete(&CommunityPostLike{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotLiked
	}
	return CountPostLikes(tx, postID)
}

func CountPostLikes(tx *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := tx.Model(&CommunityPostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func LikeComment(tx *gorm.DB, commentID, userID uint, role Role) (int64, error) {
	var existing CommunityCommentLike
	err := tx.Where("comment_id = ? AND user_id = ? AND user_role = ?", commentID, userID, role).First(&existing).Error
	if err == nil {
		return 0, ErrAlreadyLiked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err := tx.Create(&CommunityCommentLike{CommentID: commentID, UserID: userID, UserRole: role}).Error; err != nil {
		return 0, err
	}
	return CountCommentLikes(tx, commentID)
}

func UnlikeComment(tx *gorm.DB, commentID, userID uint, role Role) (int64, error) {
	res := tx.Where("comment_id = ? AND user_id = ? AND user_role = ?", commentID, userID, role).Delete(&CommunityCommentLike{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotLiked
	}
	return CountCommentLikes(tx, commentID)
}

func CountCommentLikes(tx *gorm.DB, commentID uint) (int64, error) {
	var count int64
	err := tx.Model(&CommunityCommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}

type countRow struct {
	ID    uint
	Count int64
}

// FillPostCounts sets LikeCount and CommentCnt on each post with two grouped queries.
func FillPostCounts(tx *gorm.DB, posts []CommunityPost) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var likes, comments []countRow
	if err := tx.Model(&CommunityPostLike{}).Select("post_id AS id, count(*) AS count").
		Where("post_id IN ?", ids).Group("post_id").Scan(&likes).Error; err != nil {
		return err
	}
	if err := tx.Model(&CommunityComment{}).Select("post_id AS id, count(*) AS count").
		Where("post_id IN ?", ids).Group("post_id").Scan(&comments).Error; err != nil {
		return err
	}

	likeByPost := make(map[uint]int64, len(likes))
	for _, r := range likes {
		likeByPost[r.ID] = r.Count
	}
	commentByPost := make(map[uint]int64, len(comments))
	for _, r := range comments {
		commentByPost[r.ID] = r.Count
	}
	for i := range posts {
		posts[i].LikeCount = likeByPost[posts[i].ID]
		posts[i].CommentCnt = commentByPost[posts[i].ID]
	}
	return nil
}

// FillCommentLikes sets LikeCount on each comment.
func FillCommentLikes(tx *gorm.DB, comments []CommunityComment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	var rows []countRow
	if err := tx.Model(&CommunityCommentLike{}).Select("comment_id AS id, count(*) AS count").
		Where("comment_id IN ?", ids).Group("comment_id").Scan(&rows).Error; err != nil {
		return err
	}
	byComment := make(map[uint]int64, len(rows))
	for _, r := range rows {
		byComment[r.ID] = r.Count
	}
	for i := range comments {
		comments[i].LikeCount = byComment[comments[i].ID]
	}
	return nil
}

// IncrementPostViews bumps the view counter without touching updated_at.
func IncrementPostViews(tx *gorm.DB, postID uint) error {
	return tx.Model(&CommunityPost{}).Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}
