package repositories

import (
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardRepository struct {
	BaseRepository
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// AddResult adds score to the user's entry, creating it on first use.
func (ds *LeaderboardRepository) AddResult(userID, username string, score int) error {
	entry := model.LeaderboardEntry{
		UserID:           userID,
		Username:         username,
		Score:            score,
		LessonsCompleted: 1,
		UpdatedAt:        time.Now(),
	}
	return ds.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"username":          username,
			"score":             gorm.Expr("leaderboard_entries.score + ?", score),
			"lessons_completed": gorm.Expr("leaderboard_entries.lessons_completed + ?", 1),
			"updated_at":        entry.UpdatedAt,
		}),
	}).Create(&entry).Error
}

func (ds *LeaderboardRepository) Top(limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := ds.db.Order("score DESC, lessons_completed DESC, updated_at ASC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (ds *LeaderboardRepository) GetEntry(userID string) (*model.LeaderboardEntry, error) {
	var entry model.LeaderboardEntry
	if err := ds.db.Where("user_id = ?", userID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Rank is 1-based: one plus the number of entries with a strictly higher score.
func (ds *LeaderboardRepository) Rank(score int) (int, error) {
	var count int64
	err := ds.db.Model(&model.LeaderboardEntry{}).Where("score > ?", score).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

func (ds *LeaderboardRepository) DeleteEntry(userID string) error {
	return ds.db.Where("user_id = ?", userID).Delete(&model.LeaderboardEntry{}).Error
}
