package main

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const rootBanner = "moodmusic backend running"

// routeRegistrar is a component that serves its own endpoints.
type routeRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// MakeRouter builds the HTTP surface:
//
//	GET  /                      liveness text
//	GET  /metrics               prometheus
//	GET  /static/generated/...  generated audio (from the audio store)
//	...                         pipeline endpoints (see pipeline.Service.RegisterRoutes)
func MakeRouter(corsConfig CORSConfig, gatherer prometheus.Gatherer, components ...routeRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())
	r.Use(cors.New(corsMiddlewareConfig(corsConfig)))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, rootBanner)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	for _, comp := range components {
		comp.RegisterRoutes(r)
	}

	return r
}

func corsMiddlewareConfig(c CORSConfig) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	if len(c.AllowOrigins) == 0 || slices.Contains(c.AllowOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowOrigins
	}
	return cc
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request")
		}
	}
}
