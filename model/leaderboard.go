package model

import "time"

type LeaderboardEntry struct {
	UserID           string    `json:"_id" gorm:"primaryKey"`
	Username         string    `json:"username"`
	Score            int       `json:"score" gorm:"index;not null;default:0"`
	LessonsCompleted int       `json:"lessonsCompleted" gorm:"not null;default:0"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
