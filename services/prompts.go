package services

import (
	"fmt"
	"strings"

	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

// MaxMathQuestions is the number of exercises in a complete lesson.
const MaxMathQuestions = 15

var subjectTopics = map[model.Subject]string{
	model.SubjectGrade1AdditionSubtraction:    "addition and subtraction up to 20",
	model.SubjectGrade2AdditionSubtraction:    "addition and subtraction up to 100",
	model.SubjectGrade2Multiplication:         "the multiplication table up to 10",
	model.SubjectGrade3MultiplicationDivision: "multiplication and division up to 100",
	model.SubjectGrade4LongArithmetic:         "long addition, subtraction and multiplication",
	model.SubjectGrade5Fractions:              "adding, subtracting and comparing fractions",
	model.SubjectGrade6Decimals:               "arithmetic with decimal numbers",
}

const tutorInstructionTemplate = `You are a patient math tutor for a child practising %s.
Ask exactly one exercise at a time, %d exercises in total.
Reply ONLY with a JSON object of the form {"text": string, "mathexpression": string, "counter": number}.
"text" is what you say to the student. "mathexpression" is the exercise you are asking now, written with digits and + - * / only, or "" when you are not asking a new exercise. "counter" is the number of exercises asked so far.
When the student answers, start "text" with "correct" or "incorrect" and explain briefly before asking the next exercise.
Never reveal the answer before the student tries.`

const analysisPrompt = `You are reviewing a finished tutoring lesson for a parent.
Using the transcript and the question logs below, reply ONLY with a JSON object of the form
{"summary": string, "strengths": [string], "weaknesses": [string], "recommendations": [string], "score": number}.
"score" is the percentage of exercises answered correctly.`

// TutorInstruction is the system message that opens every lesson transcript.
func TutorInstruction(subject model.Subject) string {
	topic, ok := subjectTopics[subject]
	if !ok {
		topic = string(subject)
	}
	return fmt.Sprintf(tutorInstructionTemplate, topic, MaxMathQuestions)
}

// AnalysisTranscript builds the one-shot conversation sent for a lesson report.
func AnalysisTranscript(lesson *model.Lesson, subject string) ([]model.ChatMessage, error) {
	if subject == "" {
		subject = string(lesson.Subject)
	}

	payload, err := shared.JSONAPI.MarshalToString(map[string]interface{}{
		"subject":      subject,
		"transcript":   lesson.Transcript(),
		"questionLogs": lesson.QuestionLogs,
	})
	if err != nil {
		return nil, err
	}

	return []model.ChatMessage{
		{Role: model.RoleSystem, Content: analysisPrompt},
		{Role: model.RoleUser, Content: payload},
	}, nil
}

// TutorReply is the structured shape the oracle is asked to produce.
type TutorReply struct {
	Text           string `json:"text"`
	MathExpression string `json:"mathexpression"`
	Counter        int    `json:"counter"`
}

// DecodeTutorReply parses a reply best-effort. Code fences and surrounding
// prose are ignored; anything that does not decode becomes plain text.
func DecodeTutorReply(raw string) TutorReply {
	body := extractJSONObject(raw)
	if body != "" {
		var reply TutorReply
		if err := shared.JSONAPI.UnmarshalFromString(body, &reply); err == nil && reply.Text != "" {
			reply.MathExpression = strings.TrimSpace(reply.MathExpression)
			return reply
		}
	}
	return TutorReply{Text: strings.TrimSpace(raw)}
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

var (
	incorrectMarkers = []string{"לא נכון", "incorrect", "not correct", "wrong"}
	correctMarkers   = []string{"נכון", "correct"}
)

// ClassifyVerdict grades a bot response. Incorrect markers are checked first
// because the correct markers also occur inside them.
func ClassifyVerdict(response string) model.Verdict {
	lower := strings.ToLower(response)
	for _, marker := range incorrectMarkers {
		if strings.Contains(lower, marker) {
			return model.VerdictIncorrect
		}
	}
	for _, marker := range correctMarkers {
		if strings.Contains(lower, marker) {
			return model.VerdictCorrect
		}
	}
	return model.VerdictNone
}
