package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobhunt/internal/utils"
)

// StaleSweeper is the janitor's manual trigger.
type StaleSweeper interface {
	RunOnce(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	sweeper StaleSweeper
}

func NewAdminHandler(s StaleSweeper) *AdminHandler {
	return &AdminHandler{sweeper: s}
}

func (h *AdminHandler) RunJanitor(c *gin.Context) {
	n, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "AdminHandler.RunJanitor", "sweep failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"timed_out": n})
}
