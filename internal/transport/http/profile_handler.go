package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

type publishRequest struct {
	PublishData         bool     `json:"publish_data"`
	Biography           string   `json:"biography"`
	Nickname            string   `json:"nickname"`
	UseNickname         bool     `json:"use_nickname"`
	GPA                 *float64 `json:"gpa"`
	AttendingDecisionID *int64   `json:"attending_decision_id"`
}

type testScoreRequest struct {
	ExamType  domain.ExamType `json:"exam_type"`
	ExamScore int             `json:"exam_score"`
}

type decisionRequest struct {
	CollegeID       int64                  `json:"college_id"`
	DecisionType    *domain.DecisionType   `json:"decision_type"`
	AdmissionStatus domain.AdmissionStatus `json:"admission_status"`
}

func (r decisionRequest) input() service.DecisionInput {
	return service.DecisionInput{CollegeID: r.CollegeID, DecisionType: r.DecisionType, AdmissionStatus: r.AdmissionStatus}
}

func RegisterProfile(e *echo.Echo, profiles *service.ProfileService) {
	h := &ProfileHandler{profiles: profiles}

	group := e.Group("/api/v1/profile", RequireAuth())
	group.GET("", h.get)
	group.PUT("", h.updatePublish)

	group.POST("/testscores", h.addTestScore)
	group.PUT("/testscores/:id", h.updateTestScore)
	group.DELETE("/testscores/:id", h.deleteTestScore)

	group.POST("/decisions", h.addDecision)
	group.PUT("/decisions/:id", h.updateDecision)
	group.DELETE("/decisions/:id", h.deleteDecision)
}

func (h *ProfileHandler) get(c echo.Context) error {
	user, _ := CurrentUser(c)
	profile, err := h.profiles.Get(c.Request().Context(), user)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) updatePublish(c echo.Context) error {
	user, _ := CurrentUser(c)
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	updated, err := h.profiles.UpdatePublish(c.Request().Context(), user, service.PublishInput{
		PublishData:         req.PublishData,
		Biography:           req.Biography,
		Nickname:            req.Nickname,
		UseNickname:         req.UseNickname,
		GPA:                 req.GPA,
		AttendingDecisionID: req.AttendingDecisionID,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("user", updated))
}

func (h *ProfileHandler) addTestScore(c echo.Context) error {
	user, _ := CurrentUser(c)
	var req testScoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	score, err := h.profiles.AddTestScore(c.Request().Context(), user, service.TestScoreInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("test_score", score))
}

func (h *ProfileHandler) updateTestScore(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("not found"))
	}
	var req testScoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	score, err := h.profiles.UpdateTestScore(c.Request().Context(), user, id, service.TestScoreInput(req))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("test_score", score))
}

func (h *ProfileHandler) deleteTestScore(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("not found"))
	}
	if err := h.profiles.DeleteTestScore(c.Request().Context(), user, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProfileHandler) addDecision(c echo.Context) error {
	user, _ := CurrentUser(c)
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	decision, err := h.profiles.AddDecision(c.Request().Context(), user, req.input())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, util.Data("decision", decision))
}

func (h *ProfileHandler) updateDecision(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("not found"))
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	decision, err := h.profiles.UpdateDecision(c.Request().Context(), user, id, req.input())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("decision", decision))
}

func (h *ProfileHandler) deleteDecision(c echo.Context) error {
	user, _ := CurrentUser(c)
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusNotFound, util.Error("not found"))
	}
	if err := h.profiles.DeleteDecision(c.Request().Context(), user, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
