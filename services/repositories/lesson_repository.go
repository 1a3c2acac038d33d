package repositories

import (
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	"gorm.io/gorm"
)

// LessonRepository handles lessons, their transcript and question logs.
type LessonRepository struct {
	BaseRepository
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *LessonRepository) preloaded() *gorm.DB {
	return ds.db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("QuestionLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		})
}

// CreateLesson inserts the lesson and its opening transcript entries.
func (ds *LessonRepository) CreateLesson(lesson *model.Lesson, opening ...model.ChatMessage) (*model.Lesson, error) {
	if lesson.ID == "" {
		lesson.ID = newID()
	}
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Messages", "QuestionLogs").Create(lesson).Error; err != nil {
			return err
		}
		for i, msg := range opening {
			row := model.LessonMessage{
				ID:       newID(),
				LessonID: lesson.ID,
				Position: i,
				Role:     msg.Role,
				Content:  msg.Content,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			lesson.Messages = append(lesson.Messages, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (ds *LessonRepository) GetLesson(lessonID string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := ds.preloaded().Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

// GetUserLesson finds a lesson owned by userID. Other users' lessons are not found.
func (ds *LessonRepository) GetUserLesson(lessonID, userID string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := ds.preloaded().Where("id = ? AND user_id = ?", lessonID, userID).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindOpenLesson returns the most recent NOT_STARTED or IN_PROGRESS lesson
// for the user and subject.
func (ds *LessonRepository) FindOpenLesson(userID string, subject model.Subject) (*model.Lesson, error) {
	var lesson model.Lesson
	err := ds.db.
		Where("user_id = ? AND subject = ? AND progress IN ?", userID, subject,
			[]model.Progress{model.ProgressNotStarted, model.ProgressInProgress}).
		Order("start_time DESC").
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (ds *LessonRepository) ListUserLessons(userID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := ds.db.
		Preload("QuestionLogs", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "lesson_id")
		}).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&lessons).Error
	return lessons, err
}

func (ds *LessonRepository) UpdateFields(lessonID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return ds.db.Model(&model.Lesson{}).Where("id = ?", lessonID).Updates(fields).Error
}

// MarkInProgress moves a NOT_STARTED lesson forward; other states are untouched.
func (ds *LessonRepository) MarkInProgress(lessonID string) error {
	return ds.db.Model(&model.Lesson{}).
		Where("id = ? AND progress = ?", lessonID, model.ProgressNotStarted).
		Updates(map[string]interface{}{
			"progress":   model.ProgressInProgress,
			"updated_at": time.Now(),
		}).Error
}

// MarkDone closes the lesson. It reports false when it was already closed.
func (ds *LessonRepository) MarkDone(lessonID string, at time.Time) (bool, error) {
	result := ds.db.Model(&model.Lesson{}).
		Where("id = ? AND progress <> ?", lessonID, model.ProgressDone).
		Updates(map[string]interface{}{
			"progress":   model.ProgressDone,
			"end_time":   at,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementMathCounter bumps the counter in the database and returns the new value.
func (ds *LessonRepository) IncrementMathCounter(lessonID string) (int, error) {
	var count int
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Lesson{}).Where("id = ?", lessonID).
			Update("math_questions_asked", gorm.Expr("math_questions_asked + ?", 1)).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.Lesson{}).Where("id = ?", lessonID).
			Select("math_questions_asked").Scan(&count).Error
	})
	return count, err
}

func (ds *LessonRepository) IncrementCorrectAnswers(lessonID string) error {
	return ds.db.Model(&model.Lesson{}).Where("id = ?", lessonID).
		Update("correct_answers", gorm.Expr("correct_answers + ?", 1)).Error
}

func (ds *LessonRepository) SetPendingExpression(lessonID, expression string) error {
	return ds.db.Model(&model.Lesson{}).Where("id = ?", lessonID).
		Update("pending_expression", expression).Error
}

// AppendMessages adds transcript entries after the current last position.
func (ds *LessonRepository) AppendMessages(lessonID string, messages ...model.ChatMessage) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextPosition(tx, &model.LessonMessage{}, lessonID)
		if err != nil {
			return err
		}
		for i, msg := range messages {
			row := model.LessonMessage{
				ID:       newID(),
				LessonID: lessonID,
				Position: next + i,
				Role:     msg.Role,
				Content:  msg.Content,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ==================== QUESTION LOGS ====================

func (ds *LessonRepository) FindQuestionLog(lessonID, expression string) (*model.QuestionLog, error) {
	var qlog model.QuestionLog
	err := ds.db.Where("lesson_id = ? AND math_expression = ?", lessonID, expression).First(&qlog).Error
	if err != nil {
		return nil, err
	}
	return &qlog, nil
}

func (ds *LessonRepository) LastQuestionLog(lessonID string) (*model.QuestionLog, error) {
	var qlog model.QuestionLog
	err := ds.db.Where("lesson_id = ?", lessonID).Order("position DESC, created_at DESC").First(&qlog).Error
	if err != nil {
		return nil, err
	}
	return &qlog, nil
}

func (ds *LessonRepository) CreateQuestionLog(qlog *model.QuestionLog) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		next, err := nextPosition(tx, &model.QuestionLog{}, qlog.LessonID)
		if err != nil {
			return err
		}
		if qlog.ID == "" {
			qlog.ID = newID()
		}
		qlog.Position = next
		if qlog.Answers == nil {
			qlog.Answers = []string{}
		}
		if qlog.BotResponses == nil {
			qlog.BotResponses = []string{}
		}
		return tx.Create(qlog).Error
	})
}

func (ds *LessonRepository) SaveQuestionLog(qlog *model.QuestionLog) error {
	qlog.UpdatedAt = time.Now()
	return ds.db.Save(qlog).Error
}

func (ds *LessonRepository) ListQuestionLogs(lessonID string) ([]model.QuestionLog, error) {
	var logs []model.QuestionLog
	err := ds.db.Where("lesson_id = ?", lessonID).Order("position ASC, created_at ASC").Find(&logs).Error
	return logs, err
}

func nextPosition(tx *gorm.DB, table interface{}, lessonID string) (int, error) {
	var last int
	err := tx.Model(table).Where("lesson_id = ?", lessonID).
		Select("COALESCE(MAX(position), -1)").Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}
