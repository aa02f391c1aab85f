package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ---------------- STUDENTS ----------------
type Student struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `gorm:"index" json:"email"`
	Phone                 string     `json:"phone"`
	CodeforcesHandle      string     `gorm:"index" json:"codeforcesHandle"`
	CurrentRating         *int       `json:"currentRating"`
	MaxRating             *int       `json:"maxRating"`
	LastSyncedAt          *time.Time `json:"lastSynced"`
	RemindersSent         int        `json:"remindersSent"`
	EmailRemindersEnabled bool       `json:"emailRemindersEnabled"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (s *Student) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// RatingSummary is the derived triple written back to a student after each sync.
type RatingSummary struct {
	CurrentRating *int       `json:"currentRating"`
	MaxRating     *int       `json:"maxRating"`
	LastSyncedAt  *time.Time `json:"lastSynced"`
}

func (s Student) Summary() RatingSummary {
	return RatingSummary{CurrentRating: s.CurrentRating, MaxRating: s.MaxRating, LastSyncedAt: s.LastSyncedAt}
}

// ---------------- CONTEST RESULTS ----------------
type ContestResult struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	StudentID    uuid.UUID `gorm:"type:uuid;index;not null" json:"studentId"`
	ContestID    int       `json:"contestId"`
	ContestName  string    `json:"contestName"`
	Rank         int       `json:"rank"`
	OldRating    int       `json:"oldRating"`
	NewRating    int       `json:"newRating"`
	RatingChange int       `json:"ratingChange"`
	ContestDate  time.Time `gorm:"index" json:"contestDate"`
}

// ---------------- SUBMISSIONS (accepted only) ----------------
type Submission struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"-"`
	StudentID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"studentId"`
	ProblemKey   string         `gorm:"index;not null" json:"problemId"`
	ContestID    int            `json:"contestId"`
	Index        string         `gorm:"column:problem_index" json:"index"`
	Name         string         `json:"name"`
	Rating       int            `json:"rating"` // 0 when the problem is unrated
	Tags         datatypes.JSON `json:"tags"`   // []string
	Verdict      string         `gorm:"not null" json:"verdict"`
	CreationTime time.Time      `gorm:"index;not null" json:"creationTime"`
}

// ---------------- OUTBOX (for search sync events) ----------------
type Outbox struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	EntityType string    `gorm:"index;not null"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null"`
	Op         string    `gorm:"not null"` // UPSERT | DELETE
	Payload    datatypes.JSON
	CreatedAt  time.Time
	Processed  bool `gorm:"default:false"`
}
