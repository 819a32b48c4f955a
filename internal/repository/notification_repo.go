package repository

import (
	"time"

	"childcare-reconciliation-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertIfNew inserts the notification unless its duplicate hash is
// already present. The unique index makes this race-free: under
// concurrent deliveries of the same payload exactly one insert wins and
// every other caller observes false.
func (r *NotificationRepository) InsertIfNew(n *models.Notification) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "duplicate_hash"}},
		DoNothing: true,
	}).Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) Save(n *models.Notification) error {
	return r.db.Save(n).Error
}

func (r *NotificationRepository) FindFailed() ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.
		Where("match_status = ?", models.NotificationFailed).
		Order("received_at ASC").
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Count(&count).Error
	return count, err
}

func (r *NotificationRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("match_status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) CountReceivedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("received_at >= ?", since).
		Count(&count).Error
	return count, err
}
