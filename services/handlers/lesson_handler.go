package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type LessonHandler struct {
	lessonSvc LessonServiceInterface
}

func NewLessonHandler(lessonSvc LessonServiceInterface) *LessonHandler {
	return &LessonHandler{
		lessonSvc: lessonSvc,
	}
}

// @Summary Start or resume a lesson
// @Description Resumes lessonId when it is an open lesson of the caller, otherwise starts a new lesson for the subject. 409 carries the id of the already open lesson
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string false "Lesson to resume"
// @Param startRequest body dto.StartLessonRequest false "Subject"
// @Success 200 {object} shared.Response{data=dto.StartLessonResponse}
// @Success 201 {object} shared.Response{data=dto.StartLessonResponse}
// @Failure 409 {object} shared.Response{data=dto.OpenLessonConflict}
// @Router /api/v1/lessons/startNew/{lessonId} [post]
func (h *LessonHandler) StartLesson(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.StartLessonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request body")
		}
	}

	resp, created, err := h.lessonSvc.StartLesson(userID, model.Subject(req.Subject), c.Params("lessonId"))
	if err != nil {
		return err
	}

	if created {
		return shared.ResponseJSON(c, http.StatusCreated, "Lesson started", resp)
	}
	return shared.ResponseJSON(c, http.StatusOK, "Lesson resumed", resp)
}

// @Summary List lessons
// @Tags lessons
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=[]dto.LessonSummary}
// @Router /api/v1/lessons [get]
func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	lessons, err := h.lessonSvc.ListLessons(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", lessons)
}

// @Summary Get lesson
// @Description Full lesson with transcript and question logs
// @Tags lessons
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=model.Lesson}
// @Router /api/v1/lessons/{lessonId} [get]
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	lesson, err := h.lessonSvc.GetLesson(userID, c.Params("lessonId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", lesson)
}

// @Summary Chat
// @Description Send one student message. Arithmetic is answered locally, everything else by the tutor
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Param chatRequest body dto.ChatRequest true "Message"
// @Success 200 {object} shared.Response{data=dto.ChatResponse}
// @Failure 409 {object} shared.Response
// @Router /api/v1/lessons/{lessonId}/chat [post]
func (h *LessonHandler) Chat(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.ChatRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.lessonSvc.Chat(c.UserContext(), userID, c.Params("lessonId"), req.Question)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Log question
// @Description Open a question log for an expression. Logging a known expression changes nothing
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Param questionRequest body dto.QuestionLogRequest true "Expression and optional first answer"
// @Success 200 {object} shared.Response{data=dto.QuestionLogResponse}
// @Router /api/v1/lessons/{lessonId}/questions [post]
func (h *LessonHandler) LogQuestion(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.QuestionLogRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	logs, err := h.lessonSvc.LogQuestion(userID, c.Params("lessonId"), req.MathExpression, req.Text)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.QuestionLogResponse{Logs: logs})
}

// @Summary Log answer
// @Description Append a student answer to the latest question log
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Param answerRequest body dto.LogEntryRequest true "Answer"
// @Success 200 {object} shared.Response{data=dto.QuestionLogResponse}
// @Failure 400 {object} shared.Response
// @Router /api/v1/lessons/{lessonId}/answers [post]
func (h *LessonHandler) LogAnswer(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.LogEntryRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	logs, err := h.lessonSvc.LogAnswer(userID, c.Params("lessonId"), req.Text)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.QuestionLogResponse{Logs: logs})
}

// @Summary Log tutor response
// @Description Append a tutor response to the latest question log and grade it
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Param responseRequest body dto.LogEntryRequest true "Tutor response"
// @Success 200 {object} shared.Response{data=dto.QuestionLogResponse}
// @Failure 400 {object} shared.Response
// @Router /api/v1/lessons/{lessonId}/responses [post]
func (h *LessonHandler) LogBotResponse(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.LogEntryRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	logs, err := h.lessonSvc.LogBotResponse(userID, c.Params("lessonId"), req.Text)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.QuestionLogResponse{Logs: logs})
}

// @Summary Is lesson over
// @Tags lessons
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=dto.IsOverResponse}
// @Router /api/v1/lessons/{lessonId}/isOver [get]
func (h *LessonHandler) IsOver(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.lessonSvc.IsOver(userID, c.Params("lessonId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Analyze lesson
// @Description Summarise the lesson with the tutor and email the report to the guardian
// @Tags lessons
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Param analyzeRequest body dto.AnalyzeRequest false "Recipient override"
// @Success 200 {object} shared.Response{data=dto.AnalyzeResponse}
// @Router /api/v1/lessons/{lessonId}/analyze [post]
func (h *LessonHandler) Analyze(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.AnalyzeRequest
	if len(c.Body()) > 0 {
		if err := shared.ParseAndValidate(c, &req); err != nil {
			return err
		}
	}

	resp, err := h.lessonSvc.Analyze(c.UserContext(), userID, c.Params("lessonId"), req.ParentEmail, req.Subject)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Finish lesson
// @Tags lessons
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} shared.Response{data=dto.LessonSummary}
// @Router /api/v1/lessons/{lessonId}/finish [post]
func (h *LessonHandler) FinishLesson(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	summary, err := h.lessonSvc.FinishLesson(userID, c.Params("lessonId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Lesson finished", summary)
}
