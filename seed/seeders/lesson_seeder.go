package seeders

import (
	"fmt"
	"log"
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"gorm.io/gorm"
)

// LessonSeeder writes one finished lesson per user with a full set of graded
// question logs and credits it to the leaderboard.
type LessonSeeder struct {
	lessons     *repositories.LessonRepository
	leaderboard *repositories.LeaderboardRepository
}

func NewLessonSeeder(db *gorm.DB) *LessonSeeder {
	return &LessonSeeder{
		lessons:     repositories.NewLessonRepository(db),
		leaderboard: repositories.NewLeaderboardRepository(db),
	}
}

func (s *LessonSeeder) SeedLessons(users []SeededUser) error {
	for _, user := range users {
		existing, err := s.lessons.ListUserLessons(user.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			log.Printf("User %s already has lessons, skipping", user.Username)
			continue
		}

		if err := s.seedFinishedLesson(user); err != nil {
			return fmt.Errorf("seed lesson for %s: %w", user.Username, err)
		}
		log.Printf("Seeded finished %s lesson for %s", user.Subject, user.Username)
	}
	return nil
}

func (s *LessonSeeder) seedFinishedLesson(user SeededUser) error {
	start := time.Now().Add(-time.Hour)
	lesson, err := s.lessons.CreateLesson(&model.Lesson{
		UserID:    user.ID,
		Subject:   user.Subject,
		StartTime: start,
		Progress:  model.ProgressInProgress,
	}, model.ChatMessage{Role: model.RoleSystem, Content: services.TutorInstruction(user.Subject)})
	if err != nil {
		return err
	}

	for i := 0; i < services.MaxMathQuestions; i++ {
		verdict, response := model.VerdictCorrect, "correct, well done"
		if i >= user.Correct {
			verdict, response = model.VerdictIncorrect, "incorrect, try again"
		}
		qlog := &model.QuestionLog{
			LessonID:       lesson.ID,
			MathExpression: fmt.Sprintf("%d+%d", i+1, i+2),
			Answers:        []string{fmt.Sprintf("%d", 2*i+3)},
			BotResponses:   []string{response},
			Verdict:        verdict,
		}
		if err := s.lessons.CreateQuestionLog(qlog); err != nil {
			return err
		}
	}

	if err := s.lessons.UpdateFields(lesson.ID, map[string]interface{}{
		"math_questions_asked": services.MaxMathQuestions,
		"correct_answers":      user.Correct,
	}); err != nil {
		return err
	}
	if _, err := s.lessons.MarkDone(lesson.ID, start.Add(45*time.Minute)); err != nil {
		return err
	}

	return s.leaderboard.AddResult(user.ID, user.Username, user.Correct)
}
