package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yoockh/jobhunt/internal/utils"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// writeError renders err with the status its code maps to. Errors without a
// code are reported as INTERNAL and their text is not echoed back.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err) // request logger prints it next to the status

	body := APIError{Code: utils.CodeOf(err)}
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		body.Message = ae.Message
	}

	status := utils.HTTPStatus(err)
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}
	c.JSON(status, body)
}

// requireUserID returns the Supabase user id JWTAuth stored on the context.
func requireUserID(c *gin.Context) (string, bool) {
	if s := c.GetString("user_id"); s != "" {
		return s, true
	}
	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// searchIDParam reads :search_id. Search ids are UUIDs; anything else is
// rejected here rather than reaching the uuid column in Postgres.
func searchIDParam(c *gin.Context) (string, bool) {
	raw := c.Param("search_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SearchID", "search_id must be a UUID", err))
		return "", false
	}
	return id.String(), true
}
