// Package votes 投票接口，REST 与 votes.php 两种形式共用处理逻辑
package votes

import (
	"net/http"

	"github.com/anoixa/eatinator/api/common"
	"github.com/anoixa/eatinator/internal/services/verify"
	"github.com/anoixa/eatinator/internal/services/vote"
	"github.com/gin-gonic/gin"
)

// Handler 投票处理器
type Handler struct {
	votes    *vote.Service
	verifier verify.Verifier
}

// NewHandler 投票处理器
func NewHandler(votes *vote.Service, verifier verify.Verifier) *Handler {
	return &Handler{votes: votes, verifier: verifier}
}

type castVoteRequest struct {
	Action            string `json:"action"`
	Key               string `json:"key"`
	VoteType          string `json:"voteType"`
	UserID            string `json:"userId"`
	VerificationToken string `json:"verificationToken"`
	TurnstileToken    string `json:"turnstileToken"`
}

// GetVotes GET /api/votes/:key 或 /api/votes.php?key=
func (h *Handler) GetVotes(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		key = c.Query("key")
	}

	tally, err := h.votes.GetVotes(c.Request.Context(), key)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"votes": tally})
}

// CastVote POST /api/votes
func (h *Handler) CastVote(c *gin.Context) {
	h.castVote(c, false)
}

// LegacyCastVote POST /api/votes.php，要求 action=vote
func (h *Handler) LegacyCastVote(c *gin.Context) {
	h.castVote(c, true)
}

func (h *Handler) castVote(c *gin.Context, legacy bool) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if legacy && req.Action != "vote" {
		common.RespondError(c, http.StatusBadRequest, "Invalid action")
		return
	}
	if req.Key == "" {
		req.Key = c.Param("key")
	}

	if !common.CheckVerification(c, h.verifier, req.VerificationToken, req.TurnstileToken) {
		return
	}

	tally, err := h.votes.CastVote(c.Request.Context(), req.Key, req.VoteType, req.UserID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"votes": tally})
}
