package seeders

import (
	"errors"
	"log"

	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DemoPassword = "Student123"

type SeededUser struct {
	ID       string
	Username string
	Subject  model.Subject
	Correct  int
}

type demoUser struct {
	email       string
	username    string
	grade       string
	parentEmail string
	subjects    []model.Subject
	correct     int
}

var demoUsers = []demoUser{
	{"noa@example.com", "noa", "2", "parent.noa@example.com", []model.Subject{model.SubjectGrade2Multiplication, model.SubjectGrade2AdditionSubtraction}, 13},
	{"ari@example.com", "ari", "4", "parent.ari@example.com", []model.Subject{model.SubjectGrade4LongArithmetic}, 11},
	{"maya@example.com", "maya", "5", "parent.maya@example.com", []model.Subject{model.SubjectGrade5Fractions, model.SubjectGrade6Decimals}, 14},
}

// UserSeeder creates demo students with guardian contacts and pending subjects.
type UserSeeder struct {
	repo *repositories.UserRepository
}

func NewUserSeeder(db *gorm.DB) *UserSeeder {
	return &UserSeeder{repo: repositories.NewUserRepository(db)}
}

func (s *UserSeeder) SeedUsers() ([]SeededUser, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	seeded := make([]SeededUser, 0, len(demoUsers))
	for _, demo := range demoUsers {
		user, err := s.repo.GetUserByEmail(demo.email)
		switch {
		case err == nil:
			log.Printf("User %s already exists, skipping", demo.email)
		case errors.Is(err, gorm.ErrRecordNotFound):
			user, err = s.repo.CreateUser(&model.User{
				Email:       demo.email,
				Username:    demo.username,
				Password:    string(hashed),
				Grade:       demo.grade,
				ParentEmail: demo.parentEmail,
			})
			if err != nil {
				return nil, err
			}
			if err := s.repo.ReplacePendingSubjects(user.ID, demo.subjects); err != nil {
				return nil, err
			}
			log.Printf("Created user %s", demo.email)
		default:
			return nil, err
		}

		seeded = append(seeded, SeededUser{
			ID:       user.ID,
			Username: user.Username,
			Subject:  demo.subjects[0],
			Correct:  demo.correct,
		})
	}
	return seeded, nil
}

func (s *UserSeeder) ExistingUsers() ([]SeededUser, error) {
	var users []SeededUser
	for _, demo := range demoUsers {
		user, err := s.repo.GetUserByEmail(demo.email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, SeededUser{ID: user.ID, Username: user.Username, Subject: demo.subjects[0], Correct: demo.correct})
	}
	return users, nil
}
