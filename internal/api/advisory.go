package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"supplement-safety/backend/internal/ai"
	"supplement-safety/backend/internal/scoring"
	"supplement-safety/backend/internal/store"
	"supplement-safety/backend/internal/util"
)

var errUIDRequired = errors.New("User ID is required")

func (s *Server) handleAdvisory(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("gpt analysis failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, ai.SystemErrorFallback())
		}
	}()
	timer := util.StartTimer()

	var req AdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, errUIDRequired)
		return
	}
	uid := req.UID()
	if uid == "" {
		s.renderError(c, http.StatusBadRequest, errUIDRequired)
		return
	}

	user, err := s.db.GetUser(uid)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.renderError(c, http.StatusNotFound, errUserMissing)
			return
		}
		logrus.WithError(err).WithField("uid", uid).Error("load user for gpt analysis")
		c.JSON(http.StatusInternalServerError, ai.SystemErrorFallback())
		return
	}

	input := s.advisoryInput(user, req.Prior())
	rec, err := s.composer.Compose(c.Request.Context(), input)
	timer.Mark("compose")
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"uid":        uid,
			"supplement": input.SupplementName,
		}).Error("gpt analysis failed")
		c.JSON(http.StatusInternalServerError, rec)
		return
	}

	record := &store.Analysis{
		UID:            uid,
		Kind:           store.KindAdvisory,
		SupplementName: input.SupplementName,
		OverallSafety:  input.OverallSafety,
	}
	record.SetReasons(input.Reasons)
	record.SetNutrients(input.Nutrients)
	if payload, err := json.Marshal(rec); err == nil {
		record.RecommendationJSON = string(payload)
	}
	record.ProcessingTimeMs = timer.ElapsedMs()
	if err := s.db.SaveAnalysis(record); err != nil {
		logrus.WithError(err).WithField("uid", uid).Warn("save advisory history")
		record.ID = ""
	}
	logrus.WithFields(timer.Fields()).WithFields(logrus.Fields{
		"uid":        uid,
		"supplement": input.SupplementName,
	}).Info("gpt analysis complete")

	s.notifier.Broadcast(AnalysisEvent{
		Type:           store.KindAdvisory,
		AnalysisID:     record.ID,
		UID:            uid,
		SupplementName: input.SupplementName,
		OverallSafety:  input.OverallSafety,
	})

	c.JSON(http.StatusOK, rec)
}

// advisoryInput merges the stored profile with the echoed prior analysis. A missing or
// unrecognised verdict on a known label is recomputed from the catalog, as are missing
// nutrients.
func (s *Server) advisoryInput(user *store.UserProfile, prior PriorAnalysis) ai.AdvisoryInput {
	name := prior.Label()
	input := ai.AdvisoryInput{
		Age:            user.Age,
		Gender:         user.Gender,
		Diseases:       user.Diseases(),
		Medications:    user.Medications(),
		Allergies:      user.Allergies(),
		SupplementName: name,
		Reasons:        prior.ReasonStrings(),
		Nutrients:      prior.NutrientStrings(),
	}

	_, known := s.catalog.Index(name)
	if verdict, ok := scoring.ParseVerdict(prior.OverallSafety); ok {
		input.OverallSafety = string(verdict)
	} else if known {
		assessment := scoring.Assess(s.catalog, name, input.Diseases)
		input.OverallSafety = string(assessment.Verdict)
		if len(input.Reasons) == 0 {
			input.Reasons = assessment.Reasons
		}
	} else {
		input.OverallSafety = strings.TrimSpace(prior.OverallSafety)
	}
	if len(input.Nutrients) == 0 && known {
		input.Nutrients = s.catalog.Nutrients(name)
	}
	return input
}
