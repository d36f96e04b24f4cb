package domain

const (
	EventNameQuizCompleted      = "quiz.completed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventQuizCompleted is published once per attempt when a quiz session reaches the completed state.
type EventQuizCompleted struct {
	Attempt Attempt
}

func (EventQuizCompleted) Name() string { return EventNameQuizCompleted }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
