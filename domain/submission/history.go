package submission

import (
	"context"

	"github.com/akeren/submission-history/internal/models"
	"gorm.io/gorm"
)

// historyQuery ranks every stored submission against the full population and returns the newest
// limit rows. count is the number of rows for the same first and last name with a strictly earlier
// date. Names and dates compare byte-wise, so "John" and "john" are different people and ISO dates
// order chronologically.
//
//	SELECT cur.date, cur.first_name, cur.last_name, COUNT(prev.id) AS count
//	FROM submissions AS cur
//	LEFT JOIN submissions AS prev
//	  ON prev.first_name = cur.first_name AND prev.last_name = cur.last_name AND prev.date < cur.date
//	GROUP BY cur.id, cur.date, cur.first_name, cur.last_name
//	ORDER BY cur.date DESC, cur.first_name ASC, cur.last_name ASC, cur.id DESC
//	LIMIT ?
func historyQuery(db *gorm.DB, limit int) *gorm.DB {
	table := models.Submission{}.TableName()

	return db.
		Table(table+" AS cur").
		Select("cur.date, cur.first_name, cur.last_name, COUNT(prev.id) AS count").
		Joins("LEFT JOIN "+table+" AS prev ON prev.first_name = cur.first_name AND prev.last_name = cur.last_name AND prev.date < cur.date").
		Group("cur.id, cur.date, cur.first_name, cur.last_name").
		Order("cur.date DESC, cur.first_name ASC, cur.last_name ASC, cur.id DESC").
		Limit(limit)
}

// rankedHistory never returns a nil slice on success, so an empty store serializes as [].
func rankedHistory(ctx context.Context, db *gorm.DB, limit int) ([]models.HistoryEntry, error) {
	entries := make([]models.HistoryEntry, 0, limit)
	if limit <= 0 {
		return entries, nil
	}

	if err := historyQuery(db.WithContext(ctx), limit).Scan(&entries).Error; err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	return entries, nil
}
