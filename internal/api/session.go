package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khota/quizrunner/internal/session"
)

type CreateSessionRequest struct {
	Username         string `json:"username" binding:"required"`
	BankID           string `json:"bank_id" binding:"required"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"gte=0"`
}

func (a *API) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !a.bind(c, &req) {
		return
	}

	v, err := a.qss.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		Username:         req.Username,
		BankID:           req.BankID,
		TimeLimitMinutes: req.TimeLimitMinutes,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSession(v))
}

func (a *API) GetSession(c *gin.Context) {
	v, err := a.qss.GetSession(c.Request.Context(), session.GetSessionRequest{SessionID: c.Param("id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(v))
}

func (a *API) EndSession(c *gin.Context) {
	if err := a.qss.EndSession(c.Request.Context(), session.EndSessionRequest{SessionID: c.Param("id")}); err != nil {
		a.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type SelectOptionRequest struct {
	Option *int `json:"option" binding:"required"`
}

func (a *API) SelectOption(c *gin.Context) {
	var req SelectOptionRequest
	if !a.bind(c, &req) {
		return
	}

	v, err := a.qss.SelectOption(c.Request.Context(), session.SelectOptionRequest{
		SessionID: c.Param("id"),
		Option:    *req.Option,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(v))
}

type SubmitAnswerResponse struct {
	Answer  Answer  `json:"answer"`
	Session Session `json:"session"`
}

func (a *API) SubmitAnswer(c *gin.Context) {
	resp, err := a.qss.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{SessionID: c.Param("id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitAnswerResponse{
		Answer:  toAnswer(resp.Answer),
		Session: toSession(resp.View),
	})
}

func (a *API) Advance(c *gin.Context) {
	v, err := a.qss.Advance(c.Request.Context(), session.AdvanceRequest{SessionID: c.Param("id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(v))
}

type JumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

func (a *API) Jump(c *gin.Context) {
	var req JumpRequest
	if !a.bind(c, &req) {
		return
	}

	v, err := a.qss.Jump(c.Request.Context(), session.JumpRequest{
		SessionID: c.Param("id"),
		Index:     *req.Index,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(v))
}

func (a *API) Restart(c *gin.Context) {
	v, err := a.qss.Restart(c.Request.Context(), session.RestartRequest{SessionID: c.Param("id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(v))
}

func (a *API) GetResults(c *gin.Context) {
	r, err := a.qss.GetResults(c.Request.Context(), session.GetResultsRequest{SessionID: c.Param("id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toResults(*r))
}
