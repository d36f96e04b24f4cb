// Package score turns recorded answers into quiz results.
package score

import (
	"github.com/shopspring/decimal"

	"github.com/khota/quizrunner/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Percentage returns round(correct / total * 100), with halves rounded up.
// It returns 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if correct >= total {
		return 100
	}

	return int(decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}

type threshold struct {
	min    int
	grade  domain.Grade
	rating domain.Rating
}

// thresholds is ordered from the highest minimum down.
var thresholds = []threshold{
	{90, domain.GradeA, domain.RatingExcellent},
	{80, domain.GradeB, domain.RatingVeryGood},
	{70, domain.GradeC, domain.RatingGood},
	{60, domain.GradeD, domain.RatingAcceptable},
}

func GradeFor(percentage int) domain.Grade {
	for _, t := range thresholds {
		if percentage >= t.min {
			return t.grade
		}
	}
	return domain.GradeF
}

func RatingFor(percentage int) domain.Rating {
	for _, t := range thresholds {
		if percentage >= t.min {
			return t.rating
		}
	}
	return domain.RatingNeedsImprovement
}

// Compute builds the results of an attempt from the question bank and the answers recorded so far,
// keyed by question ID. Answers to unknown questions are ignored.
func Compute(questions []domain.Question, answers map[string]domain.UserAnswer, elapsedSeconds int) domain.Results {
	r := domain.Results{
		TotalQuestions:   len(questions),
		TimeSpentSeconds: elapsedSeconds,
		Answers:          make(map[string]int, len(answers)),
		ByDifficulty:     make(map[domain.Difficulty]domain.Breakdown),
		ByCategory:       make(map[string]domain.Breakdown),
	}

	for _, q := range questions {
		r.PointsPossible += q.Points

		a, answered := answers[q.ID]
		correct := answered && a.IsCorrect

		if answered {
			r.Answers[q.ID] = a.SelectedIndex
		} else {
			r.Unanswered++
		}

		if correct {
			r.CorrectAnswers++
			r.PointsEarned += q.Points
		}

		r.ByDifficulty[q.Difficulty] = tally(r.ByDifficulty[q.Difficulty], answered, correct)
		if q.Category != "" {
			r.ByCategory[q.Category] = tally(r.ByCategory[q.Category], answered, correct)
		}
	}

	r.WrongAnswers = r.TotalQuestions - r.CorrectAnswers
	r.ScorePercentage = Percentage(r.CorrectAnswers, r.TotalQuestions)
	r.Grade = GradeFor(r.ScorePercentage)
	r.Rating = RatingFor(r.ScorePercentage)

	for k, b := range r.ByDifficulty {
		b.Percentage = Percentage(b.Correct, b.Total)
		r.ByDifficulty[k] = b
	}
	for k, b := range r.ByCategory {
		b.Percentage = Percentage(b.Correct, b.Total)
		r.ByCategory[k] = b
	}

	return r
}

func tally(b domain.Breakdown, answered, correct bool) domain.Breakdown {
	b.Total++
	if answered {
		b.Answered++
	}
	if correct {
		b.Correct++
	}
	return b
}
