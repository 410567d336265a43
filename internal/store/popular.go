package store

import (
	"errors"
	"fmt"
	"strings"
)

// PopularSupplements aggregates how often each supplement was recognised by /predict,
// optionally for a single user, most frequent first.
func (d *Database) PopularSupplements(uid string, limit int) ([]SupplementCount, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	if limit <= 0 {
		limit = 10
	}

	query := d.gorm.Table("analyses").
		Select("supplement_name, COUNT(*) AS total").
		Where("kind = ?", KindPredict)
	if uid = strings.TrimSpace(uid); uid != "" {
		query = query.Where("uid = ?", uid)
	}
	query = query.
		Group("supplement_name").
		Order("total DESC, supplement_name ASC").
		Limit(limit)

	var results []SupplementCount
	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("popular supplements: %w", err)
	}
	return results, nil
}
