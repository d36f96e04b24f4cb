package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khota/quizrunner/internal/history"
	"github.com/khota/quizrunner/internal/leaderboard"
)

type BankSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Questions        int    `json:"questions"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
}

func (a *API) ListBanks(c *gin.Context) {
	banks := a.banks.List()

	resp := make([]BankSummary, 0, len(banks))
	for _, b := range banks {
		resp = append(resp, BankSummary{
			ID:               b.ID,
			Title:            b.Title,
			Questions:        len(b.Questions),
			TimeLimitMinutes: b.TimeLimitMinutes,
		})
	}

	c.JSON(http.StatusOK, resp)
}

type PageQuery struct {
	Limit int `form:"limit" binding:"gte=0,lte=500"`
}

func (a *API) GetLeaderboard(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		a.fail(c, invalidQuery(err))
		return
	}

	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		BankID: c.Param("id"),
		Limit:  int64(q.Limit),
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(*l))
}

type AttemptsQuery struct {
	PageQuery
	BankID string `form:"bank_id"`
}

func (a *API) ListAttempts(c *gin.Context) {
	var q AttemptsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		a.fail(c, invalidQuery(err))
		return
	}

	attempts, err := a.hs.ListAttempts(c.Request.Context(), history.ListAttemptsRequest{
		Username: c.Param("username"),
		BankID:   q.BankID,
		Limit:    q.Limit,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	resp := make([]Attempt, 0, len(attempts))
	for _, at := range attempts {
		resp = append(resp, toAttempt(at))
	}

	c.JSON(http.StatusOK, resp)
}
