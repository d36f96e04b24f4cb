package domain

import (
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a single multiple-choice question. It is immutable once loaded.
type Question struct {
	ID           string     `mapstructure:"id" json:"id" validate:"required"`
	Prompt       string     `mapstructure:"prompt" json:"prompt" validate:"required"`
	Options      []string   `mapstructure:"options" json:"options" validate:"min=2,dive,required"`
	CorrectIndex int        `mapstructure:"correct_index" json:"correct_index" validate:"gte=0"`
	Explanation  string     `mapstructure:"explanation" json:"explanation"`
	Difficulty   Difficulty `mapstructure:"difficulty" json:"difficulty" validate:"difficulty"`
	Category     string     `mapstructure:"category" json:"category"`
	Points       int        `mapstructure:"points" json:"points" validate:"gte=1"`
}

// Bank is a named set of questions supplied to a quiz session.
type Bank struct {
	ID               string     `mapstructure:"id" json:"id" validate:"required"`
	Title            string     `mapstructure:"title" json:"title"`
	TimeLimitMinutes int        `mapstructure:"time_limit_minutes" json:"time_limit_minutes" validate:"gte=0"`
	Questions        []Question `mapstructure:"questions" json:"questions" validate:"min=1,dive"`
}

// UserAnswer is a recorded response to one question. It is never mutated after creation.
type UserAnswer struct {
	QuestionID       string
	SelectedIndex    int
	IsCorrect        bool
	TimeSpentSeconds int
	SubmitTime       time.Time
}

type CompletionReason string

const (
	CompletionFinished    CompletionReason = "finished"
	CompletionTimeExpired CompletionReason = "time_expired"
)

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingVeryGood         Rating = "very good"
	RatingGood             Rating = "good"
	RatingAcceptable       Rating = "acceptable"
	RatingNeedsImprovement Rating = "needs improvement"
)

var ratingLabels = map[Rating]string{
	RatingExcellent:        "ممتاز",
	RatingVeryGood:         "جيد جداً",
	RatingGood:             "جيد",
	RatingAcceptable:       "مقبول",
	RatingNeedsImprovement: "يحتاج إلى تحسين",
}

// Label returns the Arabic label shown to students.
func (r Rating) Label() string {
	return ratingLabels[r]
}

// Breakdown counts answers for a subset of questions (one difficulty tier or one category).
type Breakdown struct {
	Total      int
	Correct    int
	Answered   int
	Percentage int
}

// Results is the derived summary of a quiz attempt. WrongAnswers includes unanswered questions,
// so CorrectAnswers+WrongAnswers always equals TotalQuestions; Unanswered reports how many of the
// wrong answers were never submitted.
type Results struct {
	ScorePercentage  int
	TotalQuestions   int
	CorrectAnswers   int
	WrongAnswers     int
	Unanswered       int
	TimeSpentSeconds int
	Answers          map[string]int
	Grade            Grade
	Rating           Rating
	PointsEarned     int
	PointsPossible   int
	ByDifficulty     map[Difficulty]Breakdown
	ByCategory       map[string]Breakdown
	CompletionReason CompletionReason
	Final            bool
}

// Attempt is a completed quiz attempt as stored in the attempt history.
type Attempt struct {
	SessionID   string
	Attempt     int
	Username    string
	BankID      string
	Results     Results
	CompletedAt time.Time
}

// Leaderboard lists the best score of each user for a question bank,
// sorted by score in descending order.
type Leaderboard struct {
	BankID  string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username string
	Score    float64
}
