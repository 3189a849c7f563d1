package main

import (
	"net/http"

	"github.com/bitfantasy/procurehub/internal/config"
	"github.com/bitfantasy/procurehub/internal/middleware"
	"github.com/bitfantasy/procurehub/internal/workflow/entity"
	"github.com/bitfantasy/procurehub/internal/workflow/handler"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1，全部需要认证；动作级权限由服务层裁决
	v1 := r.Group("/api/v1/workflow")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		requests := v1.Group("/requests")
		{
			requests.GET("", h.Request.List)
			requests.POST("", h.Request.Create)
			requests.GET("/:id", h.Request.Get)
			requests.PUT("/:id", h.Request.Update)
			requests.GET("/:id/activities", h.Request.ActivityLogs)

			// 生命周期流转
			requests.POST("/:id/submit-for-review", h.Request.SubmitForReview)
			requests.POST("/:id/approve", h.Request.Approve)
			requests.POST("/:id/reject", h.Request.Reject)
			requests.POST("/:id/start-bidding", h.Request.StartBidding)
			requests.POST("/:id/recommend", h.Evaluation.Recommend)
			requests.POST("/:id/send-to-po", h.Request.SendToPO)
			requests.POST("/:id/order", h.Request.Order)
			requests.POST("/:id/reactivate", h.Request.Reactivate)

			// 报价
			requests.GET("/:id/offers", h.Offer.ListByRequest)
			requests.POST("/:id/offers", h.Offer.Submit)

			// 评估
			requests.GET("/:id/evaluation", h.Evaluation.Get)
			requests.PUT("/:id/evaluation", h.Evaluation.Save)
			requests.POST("/:id/evaluation/preview", h.Evaluation.Preview)
		}

		// 过期扫描，仅运维角色
		v1.POST("/sweep-expired",
			middleware.RequireRole(entity.RoleSystemAdmin), h.Request.SweepExpired)

		offers := v1.Group("/offers")
		{
			offers.GET("/:id", h.Offer.Get)
		}
	}
}
