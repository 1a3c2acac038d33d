package seeders

import (
	"log"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

// SeedAll seeds demo users and then a finished lesson for each of them.
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	users, err := s.SeedUsersOnly()
	if err != nil {
		log.Printf("User seeding failed: %v", err)
		return err
	}

	if err := NewLessonSeeder(s.db).SeedLessons(users); err != nil {
		log.Printf("Lesson seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedUsersOnly() ([]SeededUser, error) {
	return NewUserSeeder(s.db).SeedUsers()
}

// SeedLessonsOnly seeds lessons for demo users that already exist.
func (s *MainSeeder) SeedLessonsOnly() error {
	users, err := NewUserSeeder(s.db).ExistingUsers()
	if err != nil {
		return err
	}
	return NewLessonSeeder(s.db).SeedLessons(users)
}
