package dto

import (
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
)

// ==================== LESSON REQUEST DTOs ====================

type StartLessonRequest struct {
	Subject string `json:"subject" validate:"required,subject" example:"Grade1_AdditionSubtraction"`
}

func (s *StartLessonRequest) Validate() error {
	return GetValidator().Struct(s)
}

type ChatRequest struct {
	Question string `json:"question" validate:"required,max=2000" example:"2+2"`
}

func (c *ChatRequest) Validate() error {
	return GetValidator().Struct(c)
}

// QuestionLogRequest opens a question log; Text is the first answer, if any.
type QuestionLogRequest struct {
	MathExpression string `json:"mathExpression" validate:"required,max=200" example:"7+5"`
	Text           string `json:"text" validate:"max=4000" example:"12"`
}

func (q *QuestionLogRequest) Validate() error {
	return GetValidator().Struct(q)
}

// LogEntryRequest appends a student answer or tutor response to the latest log.
type LogEntryRequest struct {
	Text string `json:"text" validate:"required,max=4000" example:"12"`
}

func (l *LogEntryRequest) Validate() error {
	return GetValidator().Struct(l)
}

type AnalyzeRequest struct {
	ParentEmail string `json:"parentEmail" validate:"omitempty,email"`
	Subject     string `json:"subject" validate:"max=200"`
}

func (a *AnalyzeRequest) Validate() error {
	return GetValidator().Struct(a)
}

// ==================== LESSON RESPONSE DTOs ====================

type StartLessonResponse struct {
	LessonID           string         `json:"_id"`
	Subject            model.Subject  `json:"subject"`
	Progress           model.Progress `json:"progress"`
	MathQuestionsAsked int            `json:"mathQuestionsAsked"`
	CorrectAnswers     int            `json:"correctAnswers"`
	Resumed            bool           `json:"resumed"`
}

type OpenLessonConflict struct {
	LessonID string `json:"lessonId"`
}

const (
	ChatTypeText     = "text"
	ChatTypeMath     = "math"
	ChatTypeComplete = "complete"
)

type ChatResponse struct {
	Type           string   `json:"type"`
	Answer         string   `json:"answer,omitempty"`
	Result         *float64 `json:"result,omitempty"`
	MathExpression string   `json:"mathExpression,omitempty"`
	Count          int      `json:"count"`
}

type QuestionLogResponse struct {
	Logs []model.QuestionLog `json:"logs"`
}

type IsOverResponse struct {
	IsOver bool `json:"isOver"`
	Size   int  `json:"size"`
}

type EmailStatusResponse struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId"`
}

type AnalyzeResponse struct {
	Analysis map[string]interface{} `json:"analysis"`
	Email    EmailStatusResponse    `json:"email"`
}

type LessonSummary struct {
	ID                 string         `json:"_id"`
	Subject            model.Subject  `json:"subject"`
	Progress           model.Progress `json:"progress"`
	StartTime          time.Time      `json:"startTime"`
	EndTime            *time.Time     `json:"endTime,omitempty"`
	MathQuestionsAsked int            `json:"mathQuestionsAsked"`
	CorrectAnswers     int            `json:"correctAnswers"`
	QuestionLogCount   int            `json:"questionLogCount"`
}
