package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kamar-Folarin/cpython-stats/docs"
)

// @title CPython Stats API
// @version 1.0
// @description Read-only API over imported CPython pull requests and contributors
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler, mode string) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		changes := v1.Group("/changes")
		{
			changes.GET("", h.ListChanges)
			changes.GET("/:id", h.GetChange)
		}

		v1.GET("/identities/:email", h.GetIdentity)
		v1.GET("/experts", h.GetExperts)
		v1.GET("/runs", h.ListRuns)
	}

	return r
}
