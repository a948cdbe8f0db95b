package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(queueHandler *QueueHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	config.AllowMethods = []string{"POST", "OPTIONS"}
	r.Use(cors.New(config))

	functions := r.Group("/functions/v1")
	{
		functions.POST("/queue-class-generation", queueHandler.QueueClassGeneration)
	}
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	return r
}
