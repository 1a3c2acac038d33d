package repositories

import (
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	"gorm.io/gorm"
)

type EmailRepository struct {
	BaseRepository
}

func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *EmailRepository) CreateRecord(record *model.EmailRecord) error {
	if record.ID == "" {
		record.ID = newID()
	}
	if record.Status == "" {
		record.Status = model.EmailStatusPending
	}
	return ds.db.Create(record).Error
}

func (ds *EmailRepository) UpdateStatus(recordID string, status model.EmailStatus, errText string) error {
	return ds.db.Model(&model.EmailRecord{}).Where("id = ?", recordID).Updates(map[string]interface{}{
		"status":     status,
		"error":      errText,
		"updated_at": time.Now(),
	}).Error
}

func (ds *EmailRepository) GetRecord(recordID string) (*model.EmailRecord, error) {
	var record model.EmailRecord
	if err := ds.db.Where("id = ?", recordID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (ds *EmailRepository) ListByUser(userID string) ([]model.EmailRecord, error) {
	var records []model.EmailRecord
	err := ds.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error
	return records, err
}
