package controllers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/pt-buddy/models"
	"github.com/meinhoongagan/pt-buddy/utils"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func isAuthor(c *fiber.Ctx, authorID uint, authorRole models.Role) bool {
	return authorID == currentUserID(c) && authorRole == currentRole(c)
}

type postInput struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsNotice *bool   `json:"isNotice"`
	IsPinned *bool   `json:"isPinned"`
}

func (in *postInput) apply(p *models.CommunityPost) []utils.FieldError {
	var errs []utils.FieldError
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
		if n := utf8.RuneCountInString(p.Title); n == 0 || n > 200 {
			errs = append(errs, utils.FieldError{Field: "title", Message: "must be 1 to 200 characters"})
		}
	}
	if in.Content != nil {
		p.Content = strings.TrimSpace(*in.Content)
		if p.Content == "" {
			errs = append(errs, utils.FieldError{Field: "content", Message: "is required"})
		}
	}
	if in.IsNotice != nil {
		p.IsNotice = *in.IsNotice
	}
	if in.IsPinned != nil {
		p.IsPinned = *in.IsPinned
	}
	return errs
}

// GetPosts godoc
// @Summary List community posts, pinned first
// @Tags community
// @Produce json
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Router /community/posts [get]
func GetPosts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	tx := conn(c)
	var total int64
	if err := tx.Model(&models.CommunityPost{}).Count(&total).Error; err != nil {
		return utils.InternalError(c, "failed to count posts", err)
	}

	var posts []models.CommunityPost
	err := tx.Order("is_pinned desc").Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return utils.InternalError(c, "failed to fetch posts", err)
	}
	if err := models.FillPostCounts(tx, posts); err != nil {
		return utils.InternalError(c, "failed to count post activity", err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetPost returns one post with its comments and counts the view.
func GetPost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	tx := conn(c)
	var post models.CommunityPost
	err := tx.Preload("Comments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc") }).
		First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}
	if err != nil {
		return utils.InternalError(c, "failed to fetch post", err)
	}

	if err := models.IncrementPostViews(tx, post.ID); err != nil {
		return utils.InternalError(c, "failed to count view", err)
	}
	post.ViewCount++

	posts := []models.CommunityPost{post}
	if err := models.FillPostCounts(tx, posts); err != nil {
		return utils.InternalError(c, "failed to count post activity", err)
	}
	post = posts[0]
	if err := models.FillCommentLikes(tx, post.Comments); err != nil {
		return utils.InternalError(c, "failed to count comment likes", err)
	}
	return c.JSON(post)
}

// CreatePost lets any logged in user write; notices and pins are admin only.
func CreatePost(c *fiber.Ctx) error {
	input := new(postInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if input.Title == nil || input.Content == nil {
		return utils.ValidationError(c, "Title and content are required")
	}
	if (boolValue(input.IsNotice) || boolValue(input.IsPinned)) && currentRole(c) != models.RoleAdmin {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "Only administrators can create notices or pinned posts")
	}

	name, _ := c.Locals("name").(string)
	post := models.CommunityPost{
		AuthorID:   currentUserID(c),
		AuthorRole: currentRole(c),
		AuthorName: name,
	}
	if errs := input.apply(&post); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}
	if err := conn(c).Create(&post).Error; err != nil {
		return utils.InternalError(c, "failed to create post", err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func UpdatePost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}
	input := new(postInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}

	tx := conn(c)
	var post models.CommunityPost
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
		}
		return utils.InternalError(c, "failed to load post", err)
	}

	admin := currentRole(c) == models.RoleAdmin
	if !isAuthor(c, post.AuthorID, post.AuthorRole) && !admin {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "You can only edit your own posts")
	}
	if (input.IsNotice != nil || input.IsPinned != nil) && !admin {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "Only administrators can change notice or pin settings")
	}
	if errs := input.apply(&post); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	if err := tx.Model(&post).Select("title", "content", "is_notice", "is_pinned").Updates(&post).Error; err != nil {
		return utils.InternalError(c, "failed to update post", err)
	}
	return c.JSON(post)
}

func DeletePost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	tx := conn(c)
	var post models.CommunityPost
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
		}
		return utils.InternalError(c, "failed to load post", err)
	}
	if !isAuthor(c, post.AuthorID, post.AuthorRole) && currentRole(c) != models.RoleAdmin {
		return utils.ErrorJSON(c, fiber.StatusForbidden, "You can only delete your own posts")
	}

	if err := post.SoftDelete(tx, currentUserID(c)); err != nil {
		return utils.InternalError(c, "failed to delete post", err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

func GetComments(c *fiber.Ctx) error {
	postID, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	tx := conn(c)
	var comments []models.CommunityComment
	if err := tx.Where("post_id = ?", postID).Order("created_at asc").Find(&comments).Error; err != nil {
		return utils.InternalError(c, "failed to fetch comments", err)
	}
	if err := models.FillCommentLikes(tx, comments); err != nil {
		return utils.InternalError(c, "failed to count comment likes", err)
	}
	return c.JSON(comments)
}

type commentInput struct {
	Content string `json:"content"`
}

func (in *commentInput) validate() []utils.FieldError {
	in.Content = strings.TrimSpace(in.Content)
	if n := utf8.RuneCountInString(in.Content); n == 0 || n > 1000 {
		return []utils.FieldError{{Field: "content", Message: "must be 1 to 1000 characters"}}
	}
	return nil
}

func CreateComment(c *fiber.Ctx) error {
	postID, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}
	input := new(commentInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	var count int64
	if err := tx.Model(&models.CommunityPost{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return utils.InternalError(c, "failed to load post", err)
	}
	if count == 0 {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	name, _ := c.Locals("name").(string)
	comment := models.CommunityComment{
		PostID:     postID,
		AuthorID:   currentUserID(c),
		AuthorRole: currentRole(c),
		AuthorName: name,
		Content:    input.Content,
	}
	if err := tx.Create(&comment).Error; err != nil {
		return utils.InternalError(c, "failed to create comment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// loadComment writes 404/403 itself and returns nil in that case.
func loadComment(c *fiber.Ctx, tx *gorm.DB, action string) (*models.CommunityComment, error) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, utils.ErrorJSON(c, fiber.StatusNotFound, "Comment not found")
	}
	var comment models.CommunityComment
	if err := tx.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorJSON(c, fiber.StatusNotFound, "Comment not found")
		}
		return nil, utils.InternalError(c, "failed to load comment", err)
	}
	if !isAuthor(c, comment.AuthorID, comment.AuthorRole) && currentRole(c) != models.RoleAdmin {
		return nil, utils.ErrorJSON(c, fiber.StatusForbidden, "You can only "+action+" your own comments")
	}
	return &comment, nil
}

func UpdateComment(c *fiber.Ctx) error {
	input := new(commentInput)
	if err := c.BodyParser(input); err != nil {
		return utils.ValidationError(c, "Cannot parse JSON")
	}
	if errs := input.validate(); len(errs) > 0 {
		return utils.ValidationError(c, "Invalid input", errs...)
	}

	tx := conn(c)
	comment, resp := loadComment(c, tx, "edit")
	if comment == nil {
		return resp
	}
	if err := tx.Model(comment).Update("content", input.Content).Error; err != nil {
		return utils.InternalError(c, "failed to update comment", err)
	}
	comment.Content = input.Content
	return c.JSON(comment)
}

func DeleteComment(c *fiber.Ctx) error {
	tx := conn(c)
	comment, resp := loadComment(c, tx, "delete")
	if comment == nil {
		return resp
	}
	if err := comment.SoftDelete(tx, currentUserID(c)); err != nil {
		return utils.InternalError(c, "failed to delete comment", err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

func likeResponse(c *fiber.Ctx, count int64, err error, liked bool) error {
	switch {
	case errors.Is(err, models.ErrAlreadyLiked):
		return utils.ErrorJSON(c, fiber.StatusConflict, "Already liked")
	case errors.Is(err, models.ErrNotLiked):
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Like not found")
	case err != nil:
		return utils.InternalError(c, "failed to update like", err)
	}
	return c.JSON(fiber.Map{"liked": liked, "likeCount": count})
}

// existsByID reports whether a non-deleted row of model with id exists.
func existsByID(tx *gorm.DB, model interface{}, id uint) (bool, error) {
	var count int64
	err := tx.Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func LikePost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}
	tx := conn(c)
	found, err := existsByID(tx, &models.CommunityPost{}, id)
	if err != nil {
		return utils.InternalError(c, "failed to load post", err)
	}
	if !found {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	var count int64
	err = tx.Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = models.LikePost(tx, id, currentUserID(c), currentRole(c))
		return err
	})
	return likeResponse(c, count, err, true)
}

func UnlikePost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Post not found")
	}
	count, err := models.UnlikePost(conn(c), id, currentUserID(c), currentRole(c))
	return likeResponse(c, count, err, false)
}

func LikeComment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Comment not found")
	}
	tx := conn(c)
	found, err := existsByID(tx, &models.CommunityComment{}, id)
	if err != nil {
		return utils.InternalError(c, "failed to load comment", err)
	}
	if !found {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Comment not found")
	}

	var count int64
	err = tx.Transaction(func(tx *gorm.DB) error {
		var err error
		count, err = models.LikeComment(tx, id, currentUserID(c), currentRole(c))
		return err
	})
	return likeResponse(c, count, err, true)
}

func UnlikeComment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return utils.ErrorJSON(c, fiber.StatusNotFound, "Comment not found")
	}
	count, err := models.UnlikeComment(conn(c), id, currentUserID(c), currentRole(c))
	return likeResponse(c, count, err, false)
}

func boolValue(b *bool) bool {
	return b != nil && *b
}
