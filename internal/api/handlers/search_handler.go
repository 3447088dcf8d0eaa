package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/services"
	"github.com/yoockh/jobhunt/internal/utils"
)

type SearchHandler struct {
	searches services.SearchService
	results  services.ResultService
	events   services.EventService
}

func NewSearchHandler(searches services.SearchService, results services.ResultService, events services.EventService) *SearchHandler {
	return &SearchHandler{searches: searches, results: results, events: events}
}

// SubmitSearchRequest accepts the salary as either "salary" or
// "salaryExpectation".
type SubmitSearchRequest struct {
	JobTitle          string `json:"jobTitle"`
	Location          string `json:"location"`
	Skills            string `json:"skills"`
	Salary            *int   `json:"salary"`
	SalaryExpectation *int   `json:"salaryExpectation"`
}

func (r SubmitSearchRequest) Criteria() models.SearchCriteria {
	c := models.SearchCriteria{
		JobTitle: r.JobTitle,
		Location: r.Location,
		Skills:   r.Skills,
	}
	switch {
	case r.SalaryExpectation != nil:
		c.SalaryExpectation = *r.SalaryExpectation
	case r.Salary != nil:
		c.SalaryExpectation = *r.Salary
	}
	return c
}

type SubmitSearchResponse struct {
	Success  bool   `json:"success"`
	Pending  bool   `json:"pending"`
	SearchID string `json:"searchId"`
	TaskID   string `json:"taskId"`
	Message  string `json:"message"`
}

func (h *SearchHandler) Submit(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SubmitSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SearchHandler.Submit", "invalid request body", err))
		return
	}

	res, err := h.searches.Submit(c.Request.Context(), userID, req.Criteria())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitSearchResponse{
		Success:  true,
		Pending:  true,
		SearchID: res.SearchID,
		TaskID:   res.TaskID,
		Message:  "Search task started. Check your dashboard for results.",
	})
}

func (h *SearchHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.searches.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": rows})
}

func (h *SearchHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	row, err := h.searches.Get(c.Request.Context(), userID, searchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *SearchHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	if err := h.searches.Delete(c.Request.Context(), userID, searchID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SearchHandler) Results(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	search, err := h.searches.Get(ctx, userID, searchID)
	if err != nil {
		writeError(c, err)
		return
	}

	rows, err := h.results.ListBySearch(ctx, search.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"search_id": search.ID,
		"pending":   search.Status == models.SearchPending,
		"results":   rows,
	})
}

func (h *SearchHandler) Progress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	task, err := h.searches.Progress(c.Request.Context(), userID, searchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *SearchHandler) Events(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	searchID, ok := searchIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	search, err := h.searches.Get(ctx, userID, searchID)
	if err != nil {
		writeError(c, err)
		return
	}

	limit := int64(200)
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := h.events.ListBySearch(ctx, search.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"search_id": search.ID, "events": rows})
}
