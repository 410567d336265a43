package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrUserNotFound is returned when no profile exists for a uid.
var ErrUserNotFound = errors.New("user not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&UserProfile{}, &Analysis{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetUser loads the profile for uid.
func (d *Database) GetUser(uid string) (*UserProfile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrUserNotFound
	}
	var user UserProfile
	if err := d.gorm.Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SaveUser inserts the profile or replaces every field of an existing one.
func (d *Database) SaveUser(user *UserProfile) error {
	if user == nil {
		return errors.New("user is nil")
	}
	user.UID = strings.TrimSpace(user.UID)
	if user.UID == "" {
		return errors.New("uid is required")
	}
	if user.DiseasesJSON == "" {
		user.DiseasesJSON = "[]"
	}
	if user.MedicationsJSON == "" {
		user.MedicationsJSON = "[]"
	}
	if user.AllergiesJSON == "" {
		user.AllergiesJSON = "[]"
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "age", "gender", "diseases_json", "medications_json", "allergies_json", "updated_at"}),
	}).Create(user).Error
}

// ProfilePatch lists the profile fields to change; nil fields are left untouched.
type ProfilePatch struct {
	Name        *string
	Age         *int
	Gender      *string
	Diseases    []any
	Medications []any
	Allergies   []any
}

// UpdateUser applies patch to an existing profile and returns the result.
func (d *Database) UpdateUser(uid string, patch ProfilePatch) (*UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var user UserProfile
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", strings.TrimSpace(uid)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if patch.Name != nil {
			user.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Age != nil {
			user.Age = *patch.Age
		}
		if patch.Gender != nil {
			user.Gender = strings.TrimSpace(*patch.Gender)
		}
		if patch.Diseases != nil {
			user.SetDiseases(patch.Diseases)
		}
		if patch.Medications != nil {
			user.SetMedications(patch.Medications)
		}
		if patch.Allergies != nil {
			user.SetAllergies(patch.Allergies)
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountUsers returns the number of stored profiles.
func (d *Database) CountUsers() (int64, error) {
	var count int64
	if err := d.gorm.Model(&UserProfile{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SaveAnalysis creates a history row, assigning an id and timestamp when missing.
func (d *Database) SaveAnalysis(a *Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.ReasonsJSON == "" {
		a.SetReasons(nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// GetAnalysis fetches one history row.
func (d *Database) GetAnalysis(id string) (*Analysis, error) {
	var a Analysis
	if err := d.gorm.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// AnalysisQuery encapsulates filters and pagination for listing history rows.
type AnalysisQuery struct {
	UID    string
	Query  string
	Kind   string
	Date   time.Time
	Offset int
	Limit  int
}

// ListAnalyses returns a user's history, newest first. Query matches the supplement name;
// a non-zero Date keeps rows created on that UTC day.
func (d *Database) ListAnalyses(opts AnalysisQuery) ([]Analysis, int64, error) {
	var total int64
	base := d.gorm.Model(&Analysis{}).Where("uid = ?", strings.TrimSpace(opts.UID))
	if q := strings.TrimSpace(opts.Query); q != "" {
		base = base.Where("supplement_name LIKE ?", fmt.Sprintf("%%%s%%", q))
	}
	if kind := strings.TrimSpace(opts.Kind); kind != "" {
		base = base.Where("kind = ?", kind)
	}
	if !opts.Date.IsZero() {
		day := time.Date(opts.Date.Year(), opts.Date.Month(), opts.Date.Day(), 0, 0, 0, 0, time.UTC)
		base = base.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order("created_at DESC").Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []Analysis
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_analyses_uid_created ON analyses(uid, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_analyses_uid_supplement ON analyses(uid, supplement_name)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
