package services

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

const lessonReportHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Lesson Report - {{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        table { width: 100%; border-collapse: collapse; }
        td, th { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.StudentName}}'s lesson report</h1>
            <p>{{.Subject}} &middot; {{.Date}}</p>
        </div>
        <div class="content">
            <p><strong>{{.Correct}}</strong> correct answers out of <strong>{{.Asked}}</strong> exercises.</p>
            {{range .Sections}}
            <h3>{{.Title}}</h3>
            {{if .Items}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>{{.Text}}</p>{{end}}
            {{end}}
            {{if .Logs}}
            <h3>Exercises</h3>
            <table>
                <tr><th>Exercise</th><th>Answers</th><th>Result</th></tr>
                {{range .Logs}}<tr><td>{{.MathExpression}}</td><td>{{join .Answers ", "}}</td><td>{{.Verdict}}</td></tr>{{end}}
            </table>
            {{end}}
        </div>
        <div class="footer">
            <p>&copy; {{.Year}} {{.AppName}}. This is an automated email, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`

var lessonReportTemplate = template.Must(template.New("lesson_report").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(lessonReportHTML))

type reportSection struct {
	Title string
	Text  string
	Items []string
}

type lessonReportData struct {
	AppName     string
	StudentName string
	Subject     string
	Date        string
	Asked       int
	Correct     int
	Sections    []reportSection
	Logs        []model.QuestionLog
	Year        int
}

// RenderLessonReport renders the guardian email for an analysed lesson and
// returns its subject line, HTML and plain-text bodies.
func RenderLessonReport(user *model.User, lesson *model.Lesson, subject string, analysis map[string]interface{}) (string, string, string, error) {
	if subject == "" {
		subject = string(lesson.Subject)
	}

	data := lessonReportData{
		AppName:     shared.AppName,
		StudentName: user.Username,
		Subject:     subject,
		Date:        lesson.StartTime.Format("2006-01-02"),
		Asked:       lesson.MathQuestionsAsked,
		Correct:     lesson.CorrectAnswers,
		Sections:    analysisSections(analysis),
		Logs:        lesson.QuestionLogs,
		Year:        time.Now().Year(),
	}

	var body bytes.Buffer
	if err := lessonReportTemplate.Execute(&body, data); err != nil {
		return "", "", "", fmt.Errorf("failed to execute template: %v", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s's lesson report (%s, %s)\n\n", data.StudentName, data.Subject, data.Date)
	fmt.Fprintf(&text, "%d correct answers out of %d exercises.\n", data.Correct, data.Asked)
	for _, section := range data.Sections {
		fmt.Fprintf(&text, "\n%s\n", section.Title)
		if len(section.Items) > 0 {
			for _, item := range section.Items {
				fmt.Fprintf(&text, "- %s\n", item)
			}
		} else {
			fmt.Fprintf(&text, "%s\n", section.Text)
		}
	}

	title := fmt.Sprintf("%s lesson report - %s", shared.AppName, data.StudentName)
	return title, body.String(), text.String(), nil
}

var sectionOrder = []string{"summary", "strengths", "weaknesses", "recommendations"}

// analysisSections lays out the known keys first, then any extra keys the
// oracle chose to add, alphabetically.
func analysisSections(analysis map[string]interface{}) []reportSection {
	seen := map[string]bool{}
	var sections []reportSection

	add := func(key string) {
		value, ok := analysis[key]
		if !ok || seen[key] || key == "" {
			return
		}
		seen[key] = true
		section := reportSection{Title: strings.ToUpper(key[:1]) + key[1:]}
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				section.Items = append(section.Items, fmt.Sprint(item))
			}
		default:
			section.Text = fmt.Sprint(v)
		}
		sections = append(sections, section)
	}

	for _, key := range sectionOrder {
		add(key)
	}

	var rest []string
	for key := range analysis {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		add(key)
	}
	return sections
}
