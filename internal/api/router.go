// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter registers the API under /api/v1. origins lists the allowed CORS
// origins; empty or "*" allows all.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(origins))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/readings", h.Readings)
		v1.GET("/system", h.System)

		v1.GET("/session", h.ListSessions)
		v1.POST("/session", h.AddSession)
		v1.GET("/session/:id", h.GetSession)
		v1.DELETE("/session/:id", h.DeleteSession)
		v1.PUT("/session/:id/data", h.LoadData)
		v1.PUT("/session/:id/command", h.Command)
		v1.GET("/session/:id/state", h.GetState)
		v1.GET("/session/:id/window", h.GetWindow)
		v1.GET("/session/:id/report", h.GetReport)
		v1.GET("/session/:id/events", h.Events)
	}

	// app.py 兼容路径
	r.GET("/api/readings", h.Readings)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	for _, o := range origins {
		if o == "*" {
			return cors.Default()
		}
	}
	if len(origins) == 0 {
		return cors.Default()
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
