package api

import (
	"strconv"
	"time"

	"github.com/khota/quizrunner/internal/domain"
	"github.com/khota/quizrunner/internal/quiz"
	"github.com/khota/quizrunner/internal/session"
)

type (
	Session struct {
		SessionID        string    `json:"session_id"`
		Username         string    `json:"username"`
		BankID           string    `json:"bank_id"`
		CreatedAt        time.Time `json:"created_at"`
		Phase            string    `json:"phase"`
		Index            int       `json:"index"`
		Selected         *int      `json:"selected,omitempty"`
		Total            int       `json:"total"`
		Answered         int       `json:"answered"`
		RemainingSeconds int       `json:"remaining_seconds"`
		Attempt          int       `json:"attempt"`
		Question         Question  `json:"question"`
		Answer           *Answer   `json:"answer,omitempty"`
	}

	// Question hides the correct option and explanation until the answer is revealed.
	Question struct {
		ID           string   `json:"id"`
		Prompt       string   `json:"prompt"`
		Options      []string `json:"options"`
		Difficulty   string   `json:"difficulty"`
		Category     string   `json:"category,omitempty"`
		Points       int      `json:"points"`
		CorrectIndex *int     `json:"correct_index,omitempty"`
		Explanation  string   `json:"explanation,omitempty"`
	}

	Answer struct {
		QuestionID       string    `json:"question_id"`
		SelectedIndex    int       `json:"selected_index"`
		IsCorrect        bool      `json:"is_correct"`
		TimeSpentSeconds int       `json:"time_spent_seconds"`
		SubmitTime       time.Time `json:"submit_time"`
	}

	Breakdown struct {
		Total      int `json:"total"`
		Correct    int `json:"correct"`
		Answered   int `json:"answered"`
		Percentage int `json:"percentage"`
	}

	Results struct {
		ScorePercentage  int                  `json:"score_percentage"`
		Grade            string               `json:"grade"`
		Rating           string               `json:"rating"`
		RatingLabel      string               `json:"rating_label"`
		TotalQuestions   int                  `json:"total_questions"`
		CorrectAnswers   int                  `json:"correct_answers"`
		WrongAnswers     int                  `json:"wrong_answers"`
		Unanswered       int                  `json:"unanswered"`
		TimeSpentSeconds int                  `json:"time_spent_seconds"`
		PointsEarned     int                  `json:"points_earned"`
		PointsPossible   int                  `json:"points_possible"`
		Answers          map[string]int       `json:"answers"`
		ByDifficulty     map[string]Breakdown `json:"by_difficulty"`
		ByCategory       map[string]Breakdown `json:"by_category"`
		CompletionReason string               `json:"completion_reason,omitempty"`
		Final            bool                 `json:"final"`
	}

	Attempt struct {
		SessionID   string    `json:"session_id"`
		Attempt     int       `json:"attempt"`
		BankID      string    `json:"bank_id"`
		CompletedAt time.Time `json:"completed_at"`
		Results     Results   `json:"results"`
	}

	Leaderboard struct {
		BankID  string             `json:"bank_id"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Username string `json:"username"`
		Score    string `json:"score"`
	}
)

func toSession(v *session.View) Session {
	s := Session{
		SessionID:        v.SessionID,
		Username:         v.Username,
		BankID:           v.BankID,
		CreatedAt:        v.CreatedAt,
		Phase:            v.Snapshot.Phase.String(),
		Index:            v.Snapshot.Index,
		Total:            v.Snapshot.Total,
		Answered:         v.Snapshot.Answered,
		RemainingSeconds: v.Snapshot.RemainingSeconds,
		Attempt:          v.Snapshot.Attempt,
		Question:         toQuestion(v.Question, v.Snapshot.Phase != quiz.PhaseInProgress),
	}

	if v.Snapshot.Selected >= 0 {
		sel := v.Snapshot.Selected
		s.Selected = &sel
	}

	if v.Answer != nil {
		a := toAnswer(*v.Answer)
		s.Answer = &a
	}

	return s
}

func toQuestion(q domain.Question, reveal bool) Question {
	dto := Question{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Difficulty: string(q.Difficulty),
		Category:   q.Category,
		Points:     q.Points,
	}

	if reveal {
		ci := q.CorrectIndex
		dto.CorrectIndex = &ci
		dto.Explanation = q.Explanation
	}

	return dto
}

func toAnswer(a domain.UserAnswer) Answer {
	return Answer{
		QuestionID:       a.QuestionID,
		SelectedIndex:    a.SelectedIndex,
		IsCorrect:        a.IsCorrect,
		TimeSpentSeconds: a.TimeSpentSeconds,
		SubmitTime:       a.SubmitTime,
	}
}

func toResults(r domain.Results) Results {
	dto := Results{
		ScorePercentage:  r.ScorePercentage,
		Grade:            string(r.Grade),
		Rating:           string(r.Rating),
		RatingLabel:      r.Rating.Label(),
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		WrongAnswers:     r.WrongAnswers,
		Unanswered:       r.Unanswered,
		TimeSpentSeconds: r.TimeSpentSeconds,
		PointsEarned:     r.PointsEarned,
		PointsPossible:   r.PointsPossible,
		Answers:          r.Answers,
		ByDifficulty:     make(map[string]Breakdown, len(r.ByDifficulty)),
		ByCategory:       make(map[string]Breakdown, len(r.ByCategory)),
		CompletionReason: string(r.CompletionReason),
		Final:            r.Final,
	}

	if dto.Answers == nil {
		dto.Answers = map[string]int{}
	}
	for k, b := range r.ByDifficulty {
		dto.ByDifficulty[string(k)] = Breakdown(b)
	}
	for k, b := range r.ByCategory {
		dto.ByCategory[k] = Breakdown(b)
	}

	return dto
}

func toAttempt(a domain.Attempt) Attempt {
	return Attempt{
		SessionID:   a.SessionID,
		Attempt:     a.Attempt,
		BankID:      a.BankID,
		CompletedAt: a.CompletedAt,
		Results:     toResults(a.Results),
	}
}

func toLeaderboard(l domain.Leaderboard) Leaderboard {
	dto := Leaderboard{
		BankID:  l.BankID,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, e := range l.Entries {
		dto.Entries = append(dto.Entries, LeaderboardEntry{
			Username: e.Username,
			Score:    strconv.FormatFloat(e.Score, 'f', -1, 64),
		})
	}

	return dto
}
