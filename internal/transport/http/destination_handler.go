package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

type DestinationHandler struct {
	destinations *service.DestinationService
}

func RegisterDestinations(e *echo.Echo, destinations *service.DestinationService) {
	h := &DestinationHandler{destinations: destinations}

	group := e.Group("/api/v1/destinations", RequireAuth(), RequireTerms())
	group.GET("/students", h.listStudents)
	group.GET("/colleges", h.listColleges)
}

func (h *DestinationHandler) listStudents(c echo.Context) error {
	user, _ := CurrentUser(c)
	query, err := parseStudentQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	listing, err := h.destinations.ListStudents(c.Request().Context(), user, query)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, listing)
}

func (h *DestinationHandler) listColleges(c echo.Context) error {
	user, _ := CurrentUser(c)
	page, err := parsePage(c.QueryParam("page"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	listing, err := h.destinations.ListColleges(c.Request().Context(), user, service.CollegeQuery{
		Year:   c.QueryParam("year"),
		Search: c.QueryParam("q"),
		Page:   page,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, listing)
}

func parseStudentQuery(c echo.Context) (service.StudentQuery, error) {
	page, err := parsePage(c.QueryParam("page"))
	if err != nil {
		return service.StudentQuery{}, err
	}
	all := false
	if raw := strings.TrimSpace(c.QueryParam("all")); raw != "" {
		all, err = strconv.ParseBool(raw)
		if err != nil {
			return service.StudentQuery{}, errInvalidParam("all")
		}
	}
	return service.StudentQuery{
		All:     all,
		Year:    c.QueryParam("year"),
		College: c.QueryParam("college"),
		Search:  c.QueryParam("q"),
		Page:    page,
	}, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return string(e) + " is invalid"
}

func parsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errInvalidParam("page")
	}
	return page, nil
}
