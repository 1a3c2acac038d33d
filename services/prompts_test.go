package services

import (
	"strings"
	"testing"

	"github.com/lac-hong-legacy/tutor_api/model"
)

func TestDecodeTutorReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TutorReply
	}{
		{
			name: "plain json",
			raw:  `{"text": "What is 3+4?", "mathexpression": "3+4", "counter": 2}`,
			want: TutorReply{Text: "What is 3+4?", MathExpression: "3+4", Counter: 2},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"text\": \"Great\", \"mathexpression\": \" 5*5 \", \"counter\": 3}\n```",
			want: TutorReply{Text: "Great", MathExpression: "5*5", Counter: 3},
		},
		{
			name: "json inside prose",
			raw:  `Sure! {"text": "correct, next one", "mathexpression": "9-2", "counter": 4} Good luck`,
			want: TutorReply{Text: "correct, next one", MathExpression: "9-2", Counter: 4},
		},
		{
			name: "plain text",
			raw:  "  Let's start with something easy.  ",
			want: TutorReply{Text: "Let's start with something easy."},
		},
		{
			name: "broken json falls back to text",
			raw:  `{"text": "oops"`,
			want: TutorReply{Text: `{"text": "oops"`},
		},
		{
			name: "json without text falls back",
			raw:  `{"counter": 1}`,
			want: TutorReply{Text: `{"counter": 1}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeTutorReply(tt.raw); got != tt.want {
				t.Errorf("DecodeTutorReply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassifyVerdict(t *testing.T) {
	tests := []struct {
		response string
		want     model.Verdict
	}{
		{"Correct! 3+4 is 7.", model.VerdictCorrect},
		{"That is incorrect, try again", model.VerdictIncorrect},
		{"Not correct, the answer is 9", model.VerdictIncorrect},
		{"Oops, wrong answer", model.VerdictIncorrect},
		{"נכון מאוד", model.VerdictCorrect},
		{"לא נכון, נסה שוב", model.VerdictIncorrect},
		{"Let's try another one", model.VerdictNone},
	}

	for _, tt := range tests {
		if got := ClassifyVerdict(tt.response); got != tt.want {
			t.Errorf("ClassifyVerdict(%q) = %q, want %q", tt.response, got, tt.want)
		}
	}
}

func TestTutorInstructionMentionsTopic(t *testing.T) {
	got := TutorInstruction(model.SubjectGrade5Fractions)
	if !strings.Contains(got, "fractions") {
		t.Errorf("instruction does not mention the topic: %q", got)
	}
	if !strings.Contains(got, "15") {
		t.Errorf("instruction does not mention the exercise count: %q", got)
	}
}
