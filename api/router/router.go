package router

import (
	"log/slog"

	"contract-intel/api/handler"
	"contract-intel/api/middleware"

	"github.com/gin-gonic/gin"
)

// New 创建 gin 引擎并注册全部路由
func New(h *handler.ContractHandler, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(log), middleware.RequestLogger(log))
	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handler.ContractHandler) {
	r.GET("/health", handler.Health)

	api := r.Group("/api/v1")
	{
		contracts := api.Group("/contracts")
		{
			contracts.POST("/upload", h.Upload)
			contracts.GET("", h.List)
			contracts.GET("/:id", h.Get)
			contracts.DELETE("/:id", h.Delete)
			contracts.POST("/:id/analyze", h.Analyze)
			contracts.GET("/:id/export", h.Export)
		}
		ask := api.Group("/ask")
		{
			ask.POST("/global", h.AskGlobal)
			ask.POST("/:id", h.Ask)
		}
		api.POST("/compare", h.Compare)
		api.POST("/rewrite", h.Rewrite)
		api.GET("/analytics/stats", h.Stats)
		api.PATCH("/alerts/:id", h.UpdateAlert)
	}
}
