// Package stats derives rating summaries and solved-problem statistics from stored history.
// Everything here is a pure function of its inputs and the supplied "now".
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/sirdesai22/cf-tracker/internal/models"
)

const (
	DefaultProblemDays  = 30
	DefaultContestDays  = 90
	DefaultActivityDays = 365

	// MaxDays caps every trailing window. Larger windows would overflow time.Duration.
	MaxDays = 36500

	// NotAvailable names the hardest problem when nothing was solved in the window.
	NotAvailable = "N/A"

	day = 24 * time.Hour
)

// Options tunes how unrated problems (difficulty 0) are treated.
type Options struct {
	// ExcludeUnrated drops unrated problems from the average and the buckets.
	// They still count towards Total and AvgPerDay.
	ExcludeUnrated bool
}

type Bucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

type HardestProblem struct {
	Name       string `json:"name"`
	Rating     *int   `json:"rating"`
	ProblemKey string `json:"problemId,omitempty"`
}

type ProblemStats struct {
	Days      int            `json:"days"`
	Total     int            `json:"total"`
	AvgRating float64        `json:"avgRating"`
	AvgPerDay float64        `json:"avgPerDay"`
	Hardest   HardestProblem `json:"maxRatedProblem"`
	Buckets   []Bucket       `json:"bucketData"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// window resolves a requested window length to the default or the cap.
func window(days, def int) int {
	switch {
	case days <= 0:
		return def
	case days > MaxDays:
		return MaxDays
	}
	return days
}

func cutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * day)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// chronological returns a copy of subs ordered by submission time, ties kept in input order.
func chronological(subs []models.Submission) []models.Submission {
	out := make([]models.Submission, len(subs))
	copy(out, subs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreationTime.Before(out[j].CreationTime)
	})
	return out
}

// Unique returns the first accepted submission per problem key among those at or
// after since, in chronological order.
func Unique(subs []models.Submission, since time.Time) []models.Submission {
	seen := make(map[string]struct{})
	var out []models.Submission
	for _, s := range chronological(subs) {
		if s.CreationTime.Before(since) {
			continue
		}
		if _, dup := seen[s.ProblemKey]; dup {
			continue
		}
		seen[s.ProblemKey] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Problems computes solved-problem statistics over the trailing window of days ending at now.
func Problems(subs []models.Submission, now time.Time, days int, opts Options) ProblemStats {
	days = window(days, DefaultProblemDays)
	unique := Unique(subs, cutoff(now, days))

	res := ProblemStats{
		Days:    days,
		Total:   len(unique),
		Hardest: HardestProblem{Name: NotAvailable},
		Buckets: []Bucket{},
	}
	if res.Total == 0 {
		return res
	}

	var sum, rated int
	counts := make(map[int]int)
	hardest := unique[0]
	for _, s := range unique {
		if s.Rating > hardest.Rating {
			hardest = s
		}
		if opts.ExcludeUnrated && s.Rating == 0 {
			continue
		}
		sum += s.Rating
		rated++
		counts[s.Rating/100*100]++
	}

	if rated > 0 {
		res.AvgRating = round2(float64(sum) / float64(rated))
	}
	res.AvgPerDay = round2(float64(res.Total) / float64(days))

	// An all-unrated window still names its first problem, with rating 0.
	rating := hardest.Rating
	res.Hardest = HardestProblem{Name: hardest.Name, Rating: &rating, ProblemKey: hardest.ProblemKey}

	for r, c := range counts {
		res.Buckets = append(res.Buckets, Bucket{Rating: r, Count: c})
	}
	sort.Slice(res.Buckets, func(i, j int) bool { return res.Buckets[i].Rating < res.Buckets[j].Rating })
	return res
}

// DailyActivity counts every accepted submission per UTC calendar day over the trailing window.
// Repeated solves of one problem count each time.
func DailyActivity(subs []models.Submission, now time.Time, days int) []DayCount {
	days = window(days, DefaultActivityDays)
	since := cutoff(now, days)

	counts := make(map[string]int)
	for _, s := range subs {
		if s.CreationTime.Before(since) {
			continue
		}
		counts[s.CreationTime.UTC().Format(time.DateOnly)]++
	}

	out := make([]DayCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DayCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ContestsSince keeps contest results inside the trailing window, oldest first.
func ContestsSince(contests []models.ContestResult, now time.Time, days int) []models.ContestResult {
	days = window(days, DefaultContestDays)
	since := cutoff(now, days)

	out := make([]models.ContestResult, 0, len(contests))
	for _, c := range contests {
		if !c.ContestDate.Before(since) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ContestDate.Before(out[j].ContestDate) })
	return out
}

// RatingSummary recomputes the summary from a full contest history.
// An empty history keeps the previous ratings; the max never drops below the previous max.
func RatingSummary(prev models.RatingSummary, contests []models.ContestResult, now time.Time) models.RatingSummary {
	synced := now
	out := models.RatingSummary{
		CurrentRating: prev.CurrentRating,
		MaxRating:     prev.MaxRating,
		LastSyncedAt:  &synced,
	}
	if len(contests) == 0 {
		return out
	}

	latest := contests[0]
	peak := contests[0].NewRating
	for _, c := range contests[1:] {
		if !c.ContestDate.Before(latest.ContestDate) {
			latest = c
		}
		if c.NewRating > peak {
			peak = c.NewRating
		}
	}
	if prev.MaxRating != nil && *prev.MaxRating > peak {
		peak = *prev.MaxRating
	}

	current := latest.NewRating
	out.CurrentRating = &current
	out.MaxRating = &peak
	return out
}
