package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"supplement-safety/backend/internal/scoring"
	"supplement-safety/backend/internal/store"
	"supplement-safety/backend/internal/util"
	"supplement-safety/backend/internal/vision"
)

var (
	errImageAndUID = errors.New("Image and uid are required")
	errUserMissing = errors.New("User not found")
)

func (s *Server) handlePredict(c *gin.Context) {
	timer := util.StartTimer()

	uid := strings.TrimSpace(c.PostForm("uid"))
	header, err := c.FormFile("image")
	if err != nil || uid == "" {
		s.renderError(c, http.StatusBadRequest, errImageAndUID)
		return
	}
	if header.Size > s.maxImageBytes {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("image exceeds %d bytes", s.maxImageBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxImageBytes+1))
	file.Close()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if int64(len(data)) > s.maxImageBytes {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("image exceeds %d bytes", s.maxImageBytes))
		return
	}

	img, err := vision.Decode(data)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	timer.Mark("decode")

	user, err := s.db.GetUser(uid)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.renderError(c, http.StatusNotFound, errUserMissing)
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	label, err := s.classifier.Classify(c.Request.Context(), img)
	if err != nil {
		if errors.Is(err, vision.ErrNoMatch) {
			s.renderError(c, http.StatusUnprocessableEntity, err)
			return
		}
		logrus.WithError(err).WithField("classifier", s.classifier.Name()).Error("classify supplement image")
		s.renderError(c, http.StatusInternalServerError, errors.New("classification failed"))
		return
	}

	timer.Mark("classify")

	assessment := scoring.Assess(s.catalog, label.Name, user.Diseases())

	record := &store.Analysis{
		UID:            uid,
		Kind:           store.KindPredict,
		SupplementName: label.Name,
		OverallSafety:  string(assessment.Verdict),
		Classifier:     s.classifier.Name(),
	}
	record.SetReasons(assessment.Reasons)
	record.SetNutrients(assessment.Nutrients)
	if s.archiver != nil {
		if key, err := s.archiver.Archive(c.Request.Context(), uid, data); err != nil {
			logrus.WithError(err).WithField("uid", uid).Warn("archive supplement image")
		} else {
			record.ImageKey = key
		}
		timer.Mark("archive")
	}
	record.ProcessingTimeMs = timer.ElapsedMs()
	if err := s.db.SaveAnalysis(record); err != nil {
		logrus.WithError(err).WithField("uid", uid).Warn("save prediction history")
		record.ID = ""
	}

	logrus.WithFields(timer.Fields()).WithFields(logrus.Fields{
		"uid":        uid,
		"supplement": label.Name,
		"verdict":    assessment.Verdict,
		"reasons":    len(assessment.Reasons),
	}).Info("prediction complete")

	s.notifier.Broadcast(AnalysisEvent{
		Type:           store.KindPredict,
		AnalysisID:     record.ID,
		UID:            uid,
		SupplementName: label.Name,
		OverallSafety:  string(assessment.Verdict),
	})

	c.JSON(http.StatusOK, PredictResponse{
		SupplementName: label.Name,
		TotalNutrients: assessment.Nutrients,
		Supplements:    []scoring.Assessment{assessment},
		AnalysisID:     record.ID,
	})
}
