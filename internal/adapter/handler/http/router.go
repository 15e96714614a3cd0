package http

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// RegisterRoutes sets up the DAO routes and the health check.
func RegisterRoutes(r *router.Router, h *DaoHandler, logger *zap.Logger) {
	logger.Info("Setting up application-specific routes...")

	r.GET("/daos", h.GetKnownDaos)
	r.POST("/daos", h.RegisterDao)
	r.GET("/daos/{address}/treasury", h.GetDaoTreasury)
	r.GET("/daos/{address}/treasury/history", h.GetDaoTreasuryHistory)
	r.GET("/daos/{address}/proposals", h.GetDaoProposals)
	r.GET("/daos/{address}/overview", h.GetDaoOverview)
	r.GET("/proposals/{id}", h.GetProposalDetails)

	logger.Info("Setting up health check route...")
	r.GET("/health", h.Health)

	logger.Info("All routes registered.")
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(logger *zap.Logger, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		logger.Info("Request handled",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
