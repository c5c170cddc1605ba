package models

import "time"

// Submission is one stored form post. Rows are append-only: nothing updates or deletes them.
type Submission struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Date        string    `gorm:"not null;index:idx_submissions_person_date,priority:3"`
	FirstName   string    `gorm:"not null;index:idx_submissions_person_date,priority:1"`
	LastName    string    `gorm:"not null;index:idx_submissions_person_date,priority:2"`
	SubmittedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (Submission) TableName() string {
	return "submissions"
}

// HistoryEntry is a submission paired with the number of strictly earlier-dated submissions
// from the same first and last name. It is derived on every read and never stored.
type HistoryEntry struct {
	Date      string `gorm:"column:date"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	Count     int64  `gorm:"column:count"`
}
