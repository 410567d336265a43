package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"supplement-safety/backend/internal/store"
)

func (s *Server) handleGetUser(c *gin.Context) {
	user, err := s.db.GetUser(c.Param("uid"))
	if err != nil {
		s.renderUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProfileFromModel(*user))
}

func (s *Server) handlePutUser(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.Age < 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("age must not be negative"))
		return
	}
	user := &store.UserProfile{
		UID:    c.Param("uid"),
		Name:   strings.TrimSpace(req.Name),
		Age:    req.Age,
		Gender: strings.TrimSpace(req.Gender),
	}
	user.SetDiseases(req.Diseases)
	user.SetMedications(req.Medications)
	user.SetAllergies(req.Allergies)
	if err := s.db.SaveUser(user); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	saved, err := s.db.GetUser(user.UID)
	if err != nil {
		s.renderUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProfileFromModel(*saved))
}

func (s *Server) handlePatchUser(c *gin.Context) {
	var req ProfilePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.Age != nil && *req.Age < 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("age must not be negative"))
		return
	}
	user, err := s.db.UpdateUser(c.Param("uid"), store.ProfilePatch{
		Name:        req.Name,
		Age:         req.Age,
		Gender:      req.Gender,
		Diseases:    req.Diseases,
		Medications: req.Medications,
		Allergies:   req.Allergies,
	})
	if err != nil {
		s.renderUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProfileFromModel(*user))
}

func (s *Server) handleHistory(c *gin.Context) {
	uid := c.Param("uid")
	if _, err := s.db.GetUser(uid); err != nil {
		s.renderUserError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 50
	}

	var day time.Time
	if value := strings.TrimSpace(c.Query("date")); value != "" {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid date: %s", value))
			return
		}
		day = parsed
	}

	rows, total, err := s.db.ListAnalyses(store.AnalysisQuery{
		UID:    uid,
		Query:  c.Query("q"),
		Kind:   c.Query("kind"),
		Date:   day,
		Offset: page * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]AnalysisDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, AnalysisFromModel(row))
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: items, Total: total})
}

func (s *Server) renderUserError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrUserNotFound) {
		s.renderError(c, http.StatusNotFound, errUserMissing)
		return
	}
	s.renderError(c, http.StatusInternalServerError, err)
}
