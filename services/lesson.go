package services

import (
	"context"
	"errors"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrOpenLessonExists    = errors.New("an open lesson already exists for this subject")
	ErrLessonFinished      = errors.New("lesson is already finished")
	ErrInvalidSubject      = errors.New("unknown subject")
	ErrNoQuestionLog       = errors.New("lesson has no question log")
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrMissingParentEmail  = errors.New("no parent email to send the report to")
)

// TutorOracle answers one conversational turn.
type TutorOracle interface {
	SendTurn(ctx context.Context, transcript []model.ChatMessage) (string, error)
}

type LessonResultRecorder interface {
	RecordLessonResult(userID string, correct int) error
}

type ReportMailer interface {
	Send(ctx context.Context, email OutgoingEmail) (*model.EmailRecord, error)
}

type LessonService struct {
	appContext.DefaultService

	repo     *repositories.LessonRepository
	userRepo *repositories.UserRepository
	oracle   TutorOracle
	results  LessonResultRecorder
	mailer   ReportMailer

	oracleTimeout time.Duration
}

const LESSON_SVC = "lesson_svc"

func (svc LessonService) Id() string {
	return LESSON_SVC
}

func NewLessonService(db *gorm.DB, oracle TutorOracle, results LessonResultRecorder, mailer ReportMailer, oracleTimeout time.Duration) *LessonService {
	return &LessonService{
		repo:          repositories.NewLessonRepository(db),
		userRepo:      repositories.NewUserRepository(db),
		oracle:        oracle,
		results:       results,
		mailer:        mailer,
		oracleTimeout: oracleTimeout,
	}
}

func (svc *LessonService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *LessonService) Start() error {
	db := svc.Service(DATABASE_SVC).(*DatabaseService).Db()
	svc.repo = repositories.NewLessonRepository(db)
	svc.userRepo = repositories.NewUserRepository(db)

	oracleSvc := svc.Service(ORACLE_SVC).(*OracleService)
	svc.oracle = oracleSvc
	svc.oracleTimeout = oracleSvc.Timeout()

	svc.results = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.mailer = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

// ==================== LIFECYCLE ====================

// CheckOpenLesson reports the open lesson for user and subject without
// creating anything.
func (svc *LessonService) CheckOpenLesson(userID string, subject model.Subject) (string, bool, error) {
	lesson, err := svc.repo.FindOpenLesson(userID, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, HandleDBError(err)
	}
	return lesson.ID, true, nil
}

// StartLesson resumes lessonID when it is an open lesson of the caller and
// otherwise creates a new lesson. The boolean is true when a lesson was created.
func (svc *LessonService) StartLesson(userID string, subject model.Subject, lessonID string) (*dto.StartLessonResponse, bool, error) {
	if lessonID != "" {
		lesson, err := svc.repo.GetUserLesson(lessonID, userID)
		if err == nil && lesson.IsOpen() {
			resp := toStartResponse(lesson)
			resp.Resumed = true
			return resp, false, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, HandleDBError(err)
		}
	}

	if !model.IsValidSubject(string(subject)) {
		return nil, false, shared.NewBadRequestError(ErrInvalidSubject, "Unknown subject")
	}

	openID, open, err := svc.CheckOpenLesson(userID, subject)
	if err != nil {
		return nil, false, err
	}
	if open {
		return nil, false, shared.NewConflictError(ErrOpenLessonExists,
			"An open lesson already exists for this subject", dto.OpenLessonConflict{LessonID: openID})
	}

	lesson := &model.Lesson{
		UserID:    userID,
		Subject:   subject,
		StartTime: time.Now(),
		Progress:  model.ProgressNotStarted,
	}
	lesson, err = svc.repo.CreateLesson(lesson, model.ChatMessage{
		Role:    model.RoleSystem,
		Content: TutorInstruction(subject),
	})
	if err != nil {
		return nil, false, HandleDBError(err)
	}

	if err := svc.userRepo.PullPendingSubject(userID, subject); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"subject": subject,
		}).Error("Failed to remove subject from pending list")
	}

	RecordLessonStarted()
	log.WithFields(log.Fields{
		"user_id":   userID,
		"lesson_id": lesson.ID,
		"subject":   subject,
	}).Info("Lesson started")

	return toStartResponse(lesson), true, nil
}

// FinishLesson closes the lesson. Closing a closed lesson changes nothing.
func (svc *LessonService) FinishLesson(userID, lessonID string) (*dto.LessonSummary, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}

	if err := svc.complete(lesson); err != nil {
		return nil, err
	}

	lesson, err = svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	summary := toLessonSummary(*lesson)
	return &summary, nil
}

func (svc *LessonService) GetLesson(userID, lessonID string) (*model.Lesson, error) {
	return svc.ownedLesson(userID, lessonID)
}

func (svc *LessonService) ListLessons(userID string) ([]dto.LessonSummary, error) {
	lessons, err := svc.repo.ListUserLessons(userID)
	if err != nil {
		return nil, HandleDBError(err)
	}

	summaries := make([]dto.LessonSummary, 0, len(lessons))
	for _, lesson := range lessons {
		summaries = append(summaries, toLessonSummary(lesson))
	}
	return summaries, nil
}

// ==================== CONVERSATION ====================

// Chat handles one student message. Arithmetic is evaluated locally and
// counts towards the lesson; anything else goes to the oracle exactly once.
func (svc *LessonService) Chat(ctx context.Context, userID, lessonID, message string) (*dto.ChatResponse, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}

	if lesson.Progress == model.ProgressDone {
		return nil, shared.NewConflictError(ErrLessonFinished, "Lesson is already finished", nil)
	}

	if IsArithmetic(message) {
		result, err := EvaluateArithmetic(message)
		if err != nil {
			return nil, shared.NewBadRequestError(err, "Could not evaluate expression")
		}
		if err := svc.markInProgress(lesson); err != nil {
			return nil, err
		}
		return svc.chatArithmetic(lesson, result)
	}

	if err := svc.markInProgress(lesson); err != nil {
		return nil, err
	}
	return svc.chatOracle(ctx, lesson, message)
}

func (svc *LessonService) markInProgress(lesson *model.Lesson) error {
	if lesson.Progress != model.ProgressNotStarted {
		return nil
	}
	if err := svc.repo.MarkInProgress(lesson.ID); err != nil {
		return HandleDBError(err)
	}
	lesson.Progress = model.ProgressInProgress
	return nil
}

func (svc *LessonService) chatArithmetic(lesson *model.Lesson, result float64) (*dto.ChatResponse, error) {
	count, err := svc.repo.IncrementMathCounter(lesson.ID)
	if err != nil {
		return nil, HandleDBError(err)
	}

	if count >= MaxMathQuestions {
		if err := svc.complete(lesson); err != nil {
			return nil, err
		}
		return &dto.ChatResponse{
			Type:   dto.ChatTypeComplete,
			Answer: "Great work! You finished all the exercises in this lesson.",
			Count:  count,
		}, nil
	}

	return &dto.ChatResponse{
		Type:   dto.ChatTypeMath,
		Result: &result,
		Count:  count,
	}, nil
}

func (svc *LessonService) chatOracle(ctx context.Context, lesson *model.Lesson, message string) (*dto.ChatResponse, error) {
	transcript := append(lesson.Transcript(), model.ChatMessage{Role: model.RoleUser, Content: message})

	raw, err := svc.callOracle(ctx, "chat", transcript)
	if err != nil {
		return nil, err
	}

	reply := DecodeTutorReply(raw)

	if err := svc.repo.AppendMessages(lesson.ID,
		model.ChatMessage{Role: model.RoleUser, Content: message},
		model.ChatMessage{Role: model.RoleAssistant, Content: raw},
	); err != nil {
		return nil, HandleDBError(err)
	}

	if err := svc.trackPendingExpression(lesson, message, reply); err != nil {
		return nil, err
	}

	return &dto.ChatResponse{
		Type:           dto.ChatTypeText,
		Answer:         reply.Text,
		MathExpression: reply.MathExpression,
		Count:          lesson.MathQuestionsAsked,
	}, nil
}

// trackPendingExpression logs the student's message against the exercise the
// tutor asked last turn, logs the tutor's reply, then remembers a newly asked
// exercise for the next turn.
func (svc *LessonService) trackPendingExpression(lesson *model.Lesson, message string, reply TutorReply) error {
	pending := lesson.PendingExpression
	if pending != "" {
		created, err := svc.logQuestion(lesson.ID, pending, message)
		if err != nil {
			return err
		}
		if !created {
			if _, err := svc.appendToExpressionLog(lesson.ID, pending, message, false); err != nil {
				return err
			}
		}
		if _, err := svc.appendToExpressionLog(lesson.ID, pending, reply.Text, true); err != nil {
			return err
		}
	}

	if reply.MathExpression != "" && reply.MathExpression != pending {
		if err := svc.repo.SetPendingExpression(lesson.ID, reply.MathExpression); err != nil {
			return HandleDBError(err)
		}
		lesson.PendingExpression = reply.MathExpression
	}
	return nil
}

func (svc *LessonService) callOracle(ctx context.Context, kind string, transcript []model.ChatMessage) (string, error) {
	if svc.oracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.oracleTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := svc.oracle.SendTurn(ctx, transcript)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		message := "Tutor is unavailable"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			message = "Tutor did not answer in time"
		}
		RecordOracleCall(kind, outcome, elapsed)
		log.WithError(err).WithFields(log.Fields{
			"kind":    kind,
			"outcome": outcome,
			"elapsed": elapsed,
		}).Error("Oracle call failed")
		return "", shared.NewUpstreamError(err, message)
	}

	RecordOracleCall(kind, "ok", elapsed)
	return raw, nil
}

// ==================== QUESTION LOGS ====================

// LogQuestion creates the log for expression. Logging an expression that
// already exists is a no-op.
func (svc *LessonService) LogQuestion(userID, lessonID, expression, answer string) ([]model.QuestionLog, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.logQuestion(lesson.ID, expression, answer); err != nil {
		return nil, err
	}
	return svc.questionLogs(lesson.ID)
}

// LogAnswer appends a student answer to the most recent log.
func (svc *LessonService) LogAnswer(userID, lessonID, text string) ([]model.QuestionLog, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.appendToLastLog(lesson.ID, text, false); err != nil {
		return nil, err
	}
	return svc.questionLogs(lesson.ID)
}

// LogBotResponse appends a tutor response to the most recent log and grades it.
func (svc *LessonService) LogBotResponse(userID, lessonID, text string) ([]model.QuestionLog, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := svc.appendToLastLog(lesson.ID, text, true); err != nil {
		return nil, err
	}
	return svc.questionLogs(lesson.ID)
}

func (svc *LessonService) logQuestion(lessonID, expression, answer string) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, shared.NewBadRequestError(nil, "Math expression is required")
	}

	_, err := svc.repo.FindQuestionLog(lessonID, expression)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, HandleDBError(err)
	}

	qlog := &model.QuestionLog{
		LessonID:       lessonID,
		MathExpression: expression,
		Answers:        []string{},
		BotResponses:   []string{},
	}
	if answer != "" {
		qlog.Answers = append(qlog.Answers, answer)
	}
	if err := svc.repo.CreateQuestionLog(qlog); err != nil {
		return false, HandleDBError(err)
	}
	return true, nil
}

func (svc *LessonService) appendToLastLog(lessonID, text string, fromBot bool) (*model.QuestionLog, error) {
	qlog, err := svc.repo.LastQuestionLog(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewBadRequestError(ErrNoQuestionLog, "No question has been logged for this lesson")
		}
		return nil, HandleDBError(err)
	}
	return svc.appendToLog(qlog, text, fromBot)
}

// appendToExpressionLog targets the log of expression even when a newer
// exercise has been logged since.
func (svc *LessonService) appendToExpressionLog(lessonID, expression, text string, fromBot bool) (*model.QuestionLog, error) {
	qlog, err := svc.repo.FindQuestionLog(lessonID, strings.TrimSpace(expression))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewBadRequestError(ErrNoQuestionLog, "No question has been logged for this expression")
		}
		return nil, HandleDBError(err)
	}
	return svc.appendToLog(qlog, text, fromBot)
}

func (svc *LessonService) appendToLog(qlog *model.QuestionLog, text string, fromBot bool) (*model.QuestionLog, error) {
	becameCorrect := false
	if fromBot {
		qlog.BotResponses = append(qlog.BotResponses, text)
		if verdict := ClassifyVerdict(text); verdict != model.VerdictNone {
			becameCorrect = verdict == model.VerdictCorrect && qlog.Verdict != model.VerdictCorrect
			qlog.Verdict = verdict
		}
	} else {
		qlog.Answers = append(qlog.Answers, text)
	}

	if err := svc.repo.SaveQuestionLog(qlog); err != nil {
		return nil, HandleDBError(err)
	}

	if becameCorrect {
		if err := svc.repo.IncrementCorrectAnswers(qlog.LessonID); err != nil {
			return nil, HandleDBError(err)
		}
	}
	return qlog, nil
}

func (svc *LessonService) questionLogs(lessonID string) ([]model.QuestionLog, error) {
	logs, err := svc.repo.ListQuestionLogs(lessonID)
	if err != nil {
		return nil, HandleDBError(err)
	}
	return logs, nil
}

// IsOver is true once MaxMathQuestions logs exist and every one of them is graded.
func (svc *LessonService) IsOver(userID, lessonID string) (*dto.IsOverResponse, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}
	return lessonIsOver(lesson.QuestionLogs), nil
}

func lessonIsOver(logs []model.QuestionLog) *dto.IsOverResponse {
	resp := &dto.IsOverResponse{Size: len(logs)}
	if len(logs) < MaxMathQuestions {
		return resp
	}
	for i := range logs {
		if !logs[i].IsGraded() {
			return resp
		}
	}
	resp.IsOver = true
	return resp
}

// ==================== ANALYSIS ====================

// Analyze asks the oracle for a lesson summary and emails it to the guardian.
// A failed email does not fail the request; it is reported in the response.
func (svc *LessonService) Analyze(ctx context.Context, userID, lessonID, parentEmail, subject string) (*dto.AnalyzeResponse, error) {
	lesson, err := svc.ownedLesson(userID, lessonID)
	if err != nil {
		return nil, err
	}

	user, err := svc.userRepo.GetUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, HandleDBError(err)
	}

	recipient := strings.TrimSpace(parentEmail)
	if recipient == "" {
		recipient = user.ParentEmail
	}
	if recipient == "" {
		return nil, shared.NewBadRequestError(ErrMissingParentEmail, "Parent email is required")
	}

	transcript, err := AnalysisTranscript(lesson, subject)
	if err != nil {
		return nil, shared.NewInternalError(err)
	}

	raw, err := svc.callOracle(ctx, "analysis", transcript)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, shared.NewUpstreamError(ErrAnalysisUnavailable, "Analysis is unavailable")
	}

	analysis := map[string]interface{}{}
	body := extractJSONObject(raw)
	if body == "" {
		body = raw
	}
	if err := shared.JSONAPI.UnmarshalFromString(body, &analysis); err != nil {
		return nil, shared.NewUpstreamError(err, "Analysis could not be parsed")
	}

	resp := &dto.AnalyzeResponse{Analysis: analysis}

	title, htmlBody, textBody, err := RenderLessonReport(user, lesson, subject, analysis)
	if err != nil {
		log.WithError(err).WithField("lesson_id", lesson.ID).Error("Failed to render lesson report")
		return resp, nil
	}

	record, err := svc.mailer.Send(ctx, OutgoingEmail{
		UserID:   userID,
		To:       recipient,
		Subject:  title,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if record != nil {
		resp.Email.RecordID = record.ID
	}
	resp.Email.Success = err == nil
	if err != nil {
		log.WithError(err).WithField("lesson_id", lesson.ID).Warn("Lesson report email failed")
	}

	return resp, nil
}

// ==================== HELPERS ====================

func (svc *LessonService) ownedLesson(userID, lessonID string) (*model.Lesson, error) {
	lesson, err := svc.repo.GetUserLesson(lessonID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(ErrLessonNotFound, "Lesson not found")
		}
		return nil, HandleDBError(err)
	}
	return lesson, nil
}

// complete moves the lesson to DONE and credits the leaderboard once.
func (svc *LessonService) complete(lesson *model.Lesson) error {
	changed, err := svc.repo.MarkDone(lesson.ID, time.Now())
	if err != nil {
		return HandleDBError(err)
	}
	if !changed {
		return nil
	}

	RecordLessonCompleted()

	fresh, err := svc.repo.GetLesson(lesson.ID)
	if err != nil {
		return HandleDBError(err)
	}
	*lesson = *fresh

	if svc.results != nil {
		if err := svc.results.RecordLessonResult(lesson.UserID, lesson.CorrectAnswers); err != nil {
			log.WithError(err).WithField("lesson_id", lesson.ID).Error("Failed to update leaderboard")
		}
	}

	log.WithFields(log.Fields{
		"user_id":   lesson.UserID,
		"lesson_id": lesson.ID,
		"correct":   lesson.CorrectAnswers,
	}).Info("Lesson completed")
	return nil
}

func toStartResponse(lesson *model.Lesson) *dto.StartLessonResponse {
	return &dto.StartLessonResponse{
		LessonID:           lesson.ID,
		Subject:            lesson.Subject,
		Progress:           lesson.Progress,
		MathQuestionsAsked: lesson.MathQuestionsAsked,
		CorrectAnswers:     lesson.CorrectAnswers,
	}
}

func toLessonSummary(lesson model.Lesson) dto.LessonSummary {
	return dto.LessonSummary{
		ID:                 lesson.ID,
		Subject:            lesson.Subject,
		Progress:           lesson.Progress,
		StartTime:          lesson.StartTime,
		EndTime:            lesson.EndTime,
		MathQuestionsAsked: lesson.MathQuestionsAsked,
		CorrectAnswers:     lesson.CorrectAnswers,
		QuestionLogCount:   len(lesson.QuestionLogs),
	}
}
