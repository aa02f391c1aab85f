package codeforces

import "encoding/json"

const (
	statusOK     = "OK"
	statusFailed = "FAILED"

	// VerdictAccepted is the verdict of a solved submission.
	VerdictAccepted = "OK"
)

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// RawContest is one entry of user.rating.
type RawContest struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// RawProblem is the problem descriptor attached to a submission.
type RawProblem struct {
	ContestID int      `json:"contestId,omitempty"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags"`
}

// RawSubmission is one entry of user.status. Problem is nil when the service omits it.
type RawSubmission struct {
	ID                  int64       `json:"id"`
	ContestID           int         `json:"contestId,omitempty"`
	CreationTimeSeconds int64       `json:"creationTimeSeconds"`
	Problem             *RawProblem `json:"problem,omitempty"`
	ProgrammingLanguage string      `json:"programmingLanguage"`
	Verdict             string      `json:"verdict"`
}
