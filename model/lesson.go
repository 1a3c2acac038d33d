package model

import "time"

type Subject string

const (
	SubjectGrade1AdditionSubtraction    Subject = "Grade1_AdditionSubtraction"
	SubjectGrade2AdditionSubtraction    Subject = "Grade2_AdditionSubtraction"
	SubjectGrade2Multiplication         Subject = "Grade2_Multiplication"
	SubjectGrade3MultiplicationDivision Subject = "Grade3_MultiplicationDivision"
	SubjectGrade4LongArithmetic         Subject = "Grade4_LongArithmetic"
	SubjectGrade5Fractions              Subject = "Grade5_Fractions"
	SubjectGrade6Decimals               Subject = "Grade6_Decimals"
)

var Subjects = []Subject{
	SubjectGrade1AdditionSubtraction,
	SubjectGrade2AdditionSubtraction,
	SubjectGrade2Multiplication,
	SubjectGrade3MultiplicationDivision,
	SubjectGrade4LongArithmetic,
	SubjectGrade5Fractions,
	SubjectGrade6Decimals,
}

func IsValidSubject(s string) bool {
	for _, subject := range Subjects {
		if string(subject) == s {
			return true
		}
	}
	return false
}

type Progress string

const (
	ProgressNotStarted Progress = "NOT_STARTED"
	ProgressInProgress Progress = "IN_PROGRESS"
	ProgressDone       Progress = "DONE"
	// ProgressPaused is accepted by the schema but nothing transitions into it.
	ProgressPaused Progress = "PAUSED"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Verdict string

const (
	VerdictNone      Verdict = ""
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

type Lesson struct {
	ID                 string     `json:"_id" gorm:"primaryKey"`
	UserID             string     `json:"userId" gorm:"index;not null"`
	Subject            Subject    `json:"subject" gorm:"index;not null"`
	StartTime          time.Time  `json:"startTime" gorm:"not null"`
	EndTime            *time.Time `json:"endTime"`
	Progress           Progress   `json:"progress" gorm:"index;not null;default:NOT_STARTED"`
	MathQuestionsAsked int        `json:"mathQuestionsAsked" gorm:"not null;default:0"`
	CorrectAnswers     int        `json:"correctAnswers" gorm:"not null;default:0"`
	PendingExpression  string     `json:"pendingExpression"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	Messages     []LessonMessage `json:"messages" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
	QuestionLogs []QuestionLog   `json:"questionLogs" gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE"`
}

// IsOpen reports whether the lesson can still be resumed.
func (l *Lesson) IsOpen() bool {
	return l.Progress == ProgressNotStarted || l.Progress == ProgressInProgress
}

func (l *Lesson) IsFinished() bool {
	return l.Progress == ProgressDone || l.EndTime != nil
}

// Transcript returns the conversation in the shape sent to the oracle.
func (l *Lesson) Transcript() []ChatMessage {
	out := make([]ChatMessage, 0, len(l.Messages))
	for _, m := range l.Messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

type LessonMessage struct {
	ID        string    `json:"_id" gorm:"primaryKey"`
	LessonID  string    `json:"lessonId" gorm:"index;not null"`
	Position  int       `json:"position" gorm:"not null"`
	Role      Role      `json:"role" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

type QuestionLog struct {
	ID             string    `json:"_id" gorm:"primaryKey"`
	LessonID       string    `json:"lessonId" gorm:"index;not null"`
	Position       int       `json:"position" gorm:"not null"`
	MathExpression string    `json:"mathExpression" gorm:"not null"`
	Answers        []string  `json:"answer" gorm:"serializer:json;type:text"`
	BotResponses   []string  `json:"botResponse" gorm:"serializer:json;type:text"`
	Verdict        Verdict   `json:"verdict"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsGraded mirrors the completion rule for a single log: at least one
// answer, at least one response and a recognised verdict.
func (q *QuestionLog) IsGraded() bool {
	return len(q.Answers) > 0 && len(q.BotResponses) > 0 && q.Verdict != VerdictNone
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
