package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"supplement-safety/backend/internal/ai"
	"supplement-safety/backend/internal/archive"
	"supplement-safety/backend/internal/catalog"
	"supplement-safety/backend/internal/store"
	"supplement-safety/backend/internal/vision"
)

// DefaultMaxImageBytes caps uploaded photos at 5 MiB.
const DefaultMaxImageBytes int64 = 5 << 20

// Config defines server dependencies. Catalog, Classifier, Completer and Archiver may be
// supplied directly; otherwise they are built from the remaining fields.
type Config struct {
	DBPath         string
	SilentDB       bool
	CatalogPath    string
	AllowedOrigins []string
	MaxImageBytes  int64
	VisionConfig   vision.Config
	AIConfig       ai.Config
	DisableAI      bool
	ArchiveConfig  archive.Config

	Catalog    *catalog.Catalog
	Classifier vision.Classifier
	Completer  ai.Completer
	Archiver   archive.Archiver
}

// Server wires HTTP handlers with persistence, classification and advisory composition.
type Server struct {
	db             *store.Database
	catalog        *catalog.Catalog
	classifier     vision.Classifier
	composer       *ai.Composer
	archiver       archive.Archiver
	notifier       *AnalysisNotifier
	allowedOrigins []string
	maxImageBytes  int64
	aiModel        string
}

// NewServer constructs the API server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}

	cat := cfg.Catalog
	if cat == nil {
		if path := strings.TrimSpace(cfg.CatalogPath); path != "" {
			loaded, err := catalog.Load(path)
			if err != nil {
				return nil, err
			}
			cat = loaded
			logrus.WithFields(logrus.Fields{"path": path, "labels": cat.Len()}).Info("loaded supplement catalog")
		} else {
			cat = catalog.Default()
		}
	}

	classifier := cfg.Classifier
	if classifier == nil {
		built, err := vision.New(ctx, cfg.VisionConfig, cat)
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
		classifier = built
	}

	completer := cfg.Completer
	aiModel := ""
	if completer == nil {
		if cfg.DisableAI {
			logrus.Info("AI advisory disabled via configuration")
		} else if client, err := ai.NewClient(cfg.AIConfig); err == nil {
			completer = client
			aiModel = client.Model()
		} else if errors.Is(err, ai.ErrDisabled) {
			logrus.Warn("AI advisory disabled - no OpenAI API key configured")
		} else {
			return nil, fmt.Errorf("ai client: %w", err)
		}
	}

	archiver := cfg.Archiver
	if archiver == nil && strings.TrimSpace(cfg.ArchiveConfig.Bucket) != "" {
		s3Archiver, err := archive.NewS3Archiver(ctx, cfg.ArchiveConfig)
		if err != nil {
			return nil, fmt.Errorf("image archive: %w", err)
		}
		archiver = s3Archiver
		logrus.WithField("bucket", cfg.ArchiveConfig.Bucket).Info("image archive enabled")
	}

	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	return &Server{
		db:             db,
		catalog:        cat,
		classifier:     classifier,
		composer:       ai.NewComposer(completer),
		archiver:       archiver,
		notifier:       NewAnalysisNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		maxImageBytes:  maxBytes,
		aiModel:        aiModel,
	}, nil
}

// Close releases the database and the classifier session.
func (s *Server) Close() error {
	var errs []error
	if closer, ok := s.classifier.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.POST("/predict", s.handlePredict)
	r.POST("/gpt-analysis", s.handleAdvisory)

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.GET("/catalog", s.handleCatalog)
		api.GET("/users/:uid", s.handleGetUser)
		api.PUT("/users/:uid", s.handlePutUser)
		api.PATCH("/users/:uid", s.handlePatchUser)
		api.GET("/users/:uid/history", s.handleHistory)
		api.GET("/stats/supplements", s.handlePopular)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	users, err := s.db.CountUsers()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"labels":          s.catalog.Len(),
		"classifier":      s.classifier.Name(),
		"ai_enabled":      s.composer.Enabled(),
		"ai_model":        s.aiModel,
		"archive_enabled": s.archiver != nil,
		"max_image_bytes": s.maxImageBytes,
		"users":           users,
	})
}

func (s *Server) handleCatalog(c *gin.Context) {
	type entry struct {
		catalog.Label
		Nutrients map[string]string `json:"nutrients"`
	}
	labels := s.catalog.Labels()
	items := make([]entry, 0, len(labels))
	for _, label := range labels {
		items = append(items, entry{Label: label, Nutrients: s.catalog.Nutrients(label.Name)})
	}
	risks := make(map[string][]string)
	for _, disease := range s.catalog.Diseases() {
		risks[disease] = s.catalog.RiskyFor(disease)
	}
	c.JSON(http.StatusOK, gin.H{"labels": items, "risks": risks})
}

func (s *Server) handlePopular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := s.db.PopularSupplements(c.Query("uid"), limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []store.SupplementCount{}
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
