package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
)

var defaultAllowedOrigins = []string{
	"http://localhost:80",
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://127.0.0.1:80",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

// CORS allows the local dev frontends by default; deployments override the
// origin list with CORS_ALLOW_ORIGINS (comma separated).
func CORS() gin.HandlerFunc {
	origins := envutil.List("CORS_ALLOW_ORIGINS", defaultAllowedOrigins)
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
	})
}
