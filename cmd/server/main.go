package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"supplement-safety/backend/internal/ai"
	"supplement-safety/backend/internal/api"
	"supplement-safety/backend/internal/archive"
	"supplement-safety/backend/internal/vision"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("load .env")
	}
	if level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); err == nil {
		logrus.SetLevel(level)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if temp := os.Getenv("OPENAI_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = &v
		}
	}
	if maxTokens := os.Getenv("OPENAI_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			aiCfg.MaxTokens = v
		}
	}
	if timeout := os.Getenv("OPENAI_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			aiCfg.Timeout = d
		}
	}

	visionCfg := vision.Config{
		Backend:     os.Getenv("VISION_BACKEND"),
		ModelPath:   filepath.Join(baseDir, "models", "nutrient_classifier.onnx"),
		LibraryPath: os.Getenv("ONNXRUNTIME_LIB"),
		DisableCUDA: strings.EqualFold(strings.TrimSpace(os.Getenv("VISION_USE_CUDA")), "false"),
		AWSRegion:   os.Getenv("AWS_REGION"),
	}
	if override := strings.TrimSpace(os.Getenv("MODEL_PATH")); override != "" {
		visionCfg.ModelPath = override
	}

	archiveCfg := archive.Config{
		Bucket: os.Getenv("IMAGE_ARCHIVE_BUCKET"),
		Region: os.Getenv("AWS_REGION"),
		Prefix: os.Getenv("IMAGE_ARCHIVE_PREFIX"),
	}

	var maxImageBytes int64
	if v := strings.TrimSpace(os.Getenv("MAX_IMAGE_BYTES")); v != "" {
		if val, err := strconv.ParseInt(v, 10, 64); err == nil && val > 0 {
			maxImageBytes = val
		}
	}

	var origins []string
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "supplement-safety.db"),
		SilentDB:       true,
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		AllowedOrigins: origins,
		MaxImageBytes:  maxImageBytes,
		VisionConfig:   visionCfg,
		AIConfig:       aiCfg,
		DisableAI:      strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true"),
		ArchiveConfig:  archiveCfg,
	}
	if override := strings.TrimSpace(os.Getenv("SUPPLEMENT_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			logrus.WithError(err).Warn("close server resources")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5001"
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("shutdown http server")
		}
	}()

	logrus.Infof("starting supplement-safety backend on :%s", port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Errorf("server exited: %v", err)
	}
}
