package vessel

import (
	"strings"

	"github.com/bosunhq/bosun/internal/apperr"
	"github.com/bosunhq/bosun/internal/models"
	"gorm.io/gorm"
)

// AddComment attaches a comment to a vessel.
func AddComment(db *gorm.DB, vesselID, authorID, body string) (*models.VesselComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("vessel: comment body is required")
	}
	if authorID == "" {
		return nil, apperr.Validation("vessel: comment author is required")
	}
	if _, err := Get(db, "", vesselID); err != nil {
		return nil, err
	}

	c := models.VesselComment{VesselID: vesselID, AuthorID: authorID, Body: body}
	if err := db.Create(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: add comment")
	}
	return &c, nil
}

// ListComments returns a vessel's comments, newest first.
func ListComments(db *gorm.DB, vesselID string) ([]models.VesselComment, error) {
	var comments []models.VesselComment
	if err := db.Where("vessel_id = ?", vesselID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error; err != nil {
		return nil, apperr.FromDB(err, "vessel: list comments")
	}
	return comments, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func DeleteComment(db *gorm.DB, vesselID string, commentID uint, authorID string) error {
	var c models.VesselComment
	if err := db.Where("id = ? AND vessel_id = ?", commentID, vesselID).First(&c).Error; err != nil {
		return apperr.FromDB(err, "vessel: comment not found: %d", commentID)
	}
	if c.AuthorID != authorID {
		return apperr.Forbidden("vessel: comment %d belongs to another user", commentID)
	}
	if err := db.Delete(&c).Error; err != nil {
		return apperr.FromDB(err, "vessel: delete comment %d", commentID)
	}
	return nil
}
