package repositories

import (
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserRepository handles user-related database operations
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *UserRepository) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *UserRepository) GetUser(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *UserRepository) EmailExists(email string) (bool, error) {
	var count int64
	if err := ds.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ds *UserRepository) CreateUser(user *model.User) (*model.User, error) {
	if user.ID == "" {
		user.ID = newID()
	}
	if err := ds.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (ds *UserRepository) UpdateUser(user *model.User) error {
	user.UpdatedAt = time.Now()
	return ds.db.Save(user).Error
}

func (ds *UserRepository) UpdateLastLogin(userID string) error {
	now := time.Now()
	return ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_login": &now,
		"updated_at": now,
	}).Error
}

func (ds *UserRepository) UpdateProfile(userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (ds *UserRepository) UpdateProfileImage(userID, objectKey string) error {
	return ds.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"profile_image": objectKey,
		"updated_at":    time.Now(),
	}).Error
}

// DeleteUser removes the user together with its refresh tokens and pending
// subjects. Lessons are left in place.
func (ds *UserRepository) DeleteUser(userID string) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.PendingSubject{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", userID).Delete(&model.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ==================== REFRESH TOKEN SET ====================

func (ds *UserRepository) AddRefreshToken(userID, tokenHash string, expiresAt time.Time) error {
	return ds.db.Create(&model.RefreshToken{
		ID:        newID(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}).Error
}

func (ds *UserRepository) HasRefreshToken(userID, tokenHash string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.RefreshToken{}).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemoveRefreshToken reports whether the token was a member of the set.
func (ds *UserRepository) RemoveRefreshToken(userID, tokenHash string) (bool, error) {
	result := ds.db.Where("user_id = ? AND token_hash = ?", userID, tokenHash).Delete(&model.RefreshToken{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReplaceRefreshToken swaps oldHash for newHash atomically. It returns false
// without writing anything when oldHash is not in the set.
func (ds *UserRepository) ReplaceRefreshToken(userID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	replaced := false
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND token_hash = ?", userID, oldHash).Delete(&model.RefreshToken{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		replaced = true
		return tx.Create(&model.RefreshToken{
			ID:        newID(),
			UserID:    userID,
			TokenHash: newHash,
			ExpiresAt: expiresAt,
		}).Error
	})
	return replaced, err
}

func (ds *UserRepository) ClearRefreshTokens(userID string) error {
	result := ds.db.Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	if result.Error == nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"removed": result.RowsAffected,
		}).Warn("Refresh token set cleared")
	}
	return result.Error
}

func (ds *UserRepository) CountRefreshTokens(userID string) (int64, error) {
	var count int64
	err := ds.db.Model(&model.RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ==================== PENDING SUBJECTS ====================

func (ds *UserRepository) GetPendingSubjects(userID string) ([]model.Subject, error) {
	var rows []model.PendingSubject
	err := ds.db.Where("user_id = ?", userID).Order("position ASC, created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	subjects := make([]model.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.Subject)
	}
	return subjects, nil
}

func (ds *UserRepository) ReplacePendingSubjects(userID string, subjects []model.Subject) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.PendingSubject{}).Error; err != nil {
			return err
		}
		for i, subject := range subjects {
			row := &model.PendingSubject{
				ID:       newID(),
				UserID:   userID,
				Subject:  subject,
				Position: i,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PullPendingSubject removes every pending entry matching subject.
func (ds *UserRepository) PullPendingSubject(userID string, subject model.Subject) error {
	return ds.db.Where("user_id = ? AND subject = ?", userID, subject).Delete(&model.PendingSubject{}).Error
}
