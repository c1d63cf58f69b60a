package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/vanta"
	"github.com/jerry-enebeli/vanta/api/middleware"
	"github.com/jerry-enebeli/vanta/config"
)

type Api struct {
	vanta  *vanta.Vanta
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/links", a.CreateLink)
	router.GET("/links", a.ListLinks)
	router.GET("/links/:id", a.GetLink)
	router.POST("/links/:id/refund", a.RefundLink)
	router.POST("/links/:id/retry-funding", a.RetryGasFunding)

	router.POST("/claims", a.ClaimLink)

	router.GET("/links-export", a.ExportLinks)
	router.POST("/links-import", a.ImportLinks)
	router.GET("/backup-s3", a.BackupS3)

	router.POST("/refresh", a.RefreshLinks)
	return a.router
}

func NewAPI(v *vanta.Vanta) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{vanta: v, router: r}
}
