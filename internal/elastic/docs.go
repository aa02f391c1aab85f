package elastic

import (
	"encoding/json"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/models"
)

type StudentDoc struct {
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	CodeforcesHandle      string     `json:"codeforces_handle"`
	CurrentRating         *int       `json:"current_rating"`
	MaxRating             *int       `json:"max_rating"`
	LastSyncedAt          *time.Time `json:"last_synced_at"`
	EmailRemindersEnabled bool       `json:"email_reminders_enabled"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func BuildStudentDoc(s models.Student) ([]byte, error) {
	return json.Marshal(StudentDoc{
		Name:                  s.Name,
		Email:                 s.Email,
		CodeforcesHandle:      s.CodeforcesHandle,
		CurrentRating:         s.CurrentRating,
		MaxRating:             s.MaxRating,
		LastSyncedAt:          s.LastSyncedAt,
		EmailRemindersEnabled: s.EmailRemindersEnabled,
		UpdatedAt:             s.UpdatedAt,
	})
}
