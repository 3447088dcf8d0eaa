package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobhunt/internal/api/handlers"
	"github.com/yoockh/jobhunt/internal/api/middleware"
)

type Deps struct {
	Search    *handlers.SearchHandler
	Analytics *handlers.AnalyticsHandler
	Admin     *handlers.AdminHandler
	WS        *handlers.WSHandler // nil disables the websocket route
	JWT       middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.JWT))

	auth.POST("/searches", d.Search.Submit)
	auth.GET("/searches", d.Search.List)
	auth.GET("/searches/:search_id", d.Search.Get)
	auth.DELETE("/searches/:search_id", d.Search.Delete)
	auth.GET("/searches/:search_id/results", d.Search.Results)
	auth.GET("/searches/:search_id/progress", d.Search.Progress)
	auth.GET("/searches/:search_id/events", d.Search.Events)

	auth.GET("/analytics", d.Analytics.Me)

	if d.WS != nil {
		auth.GET("/ws/searches/:search_id", d.WS.SearchWS)
	}

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/janitor/run", d.Admin.RunJanitor)
}
