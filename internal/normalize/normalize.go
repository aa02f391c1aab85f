// Package normalize maps raw rating-service records onto stored contest and submission rows.
package normalize

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirdesai22/cf-tracker/internal/codeforces"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/datatypes"
)

// UnknownProblemKey is used when a submission lacks a contest id or problem index.
const UnknownProblemKey = "unknown"

// ProblemKey joins contest id and problem index, e.g. 1500 + "C" -> "1500C".
func ProblemKey(contestID int, index string) string {
	if contestID == 0 || index == "" {
		return UnknownProblemKey
	}
	return strconv.Itoa(contestID) + index
}

// Contests maps raw contest results 1:1, keeping the service's chronological order.
func Contests(studentID uuid.UUID, raw []codeforces.RawContest) []models.ContestResult {
	out := make([]models.ContestResult, 0, len(raw))
	for _, c := range raw {
		out = append(out, models.ContestResult{
			StudentID:    studentID,
			ContestID:    c.ContestID,
			ContestName:  c.ContestName,
			Rank:         c.Rank,
			OldRating:    c.OldRating,
			NewRating:    c.NewRating,
			RatingChange: c.NewRating - c.OldRating,
			ContestDate:  time.Unix(c.RatingUpdateTimeSeconds, 0).UTC(),
		})
	}
	return out
}

// Submissions keeps accepted submissions that reference a problem, oldest first.
func Submissions(studentID uuid.UUID, raw []codeforces.RawSubmission) []models.Submission {
	out := make([]models.Submission, 0, len(raw))
	for _, s := range raw {
		if s.Verdict != codeforces.VerdictAccepted || s.Problem == nil {
			continue
		}

		contestID := s.ContestID
		if contestID == 0 {
			contestID = s.Problem.ContestID
		}
		tags := s.Problem.Tags
		if tags == nil {
			tags = []string{}
		}
		tagJSON, _ := json.Marshal(tags)

		out = append(out, models.Submission{
			StudentID:    studentID,
			ProblemKey:   ProblemKey(contestID, s.Problem.Index),
			ContestID:    contestID,
			Index:        s.Problem.Index,
			Name:         s.Problem.Name,
			Rating:       s.Problem.Rating,
			Tags:         datatypes.JSON(tagJSON),
			Verdict:      s.Verdict,
			CreationTime: time.Unix(s.CreationTimeSeconds, 0).UTC(),
		})
	}

	// user.status lists newest first; "first acceptance" must mean earliest timestamp.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreationTime.Before(out[j].CreationTime)
	})
	return out
}
