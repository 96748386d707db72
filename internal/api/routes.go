package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(cors.Default())

	api := router.Group("/api/pricing")
	{
		api.GET("/config", handler.GetPricingConfig)
		api.POST("/config", handler.CreatePricingConfig)
		api.POST("/run", handler.RunBatch)
		api.POST("/run/:listing_id", handler.RunSingle)
		api.GET("/calculate/:listing_id", handler.Calculate)
		api.GET("/stats", handler.GetStats)
		api.GET("/history/:listing_id", handler.GetHistory)
	}
}
