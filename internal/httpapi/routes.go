package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *API) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"ok":        true,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	e.POST("/api/auth/login", a.handler.Login)

	images := e.Group("/api/images")
	a.registerPublicImageRoutes(images)
	a.registerAuthImageRoutes(images)
}

func (a *API) registerPublicImageRoutes(images *echo.Group) {
	images.GET("", a.handler.ListMedia)
	images.GET("/section/:section", a.handler.ListMediaBySection)
	images.GET("/:name", a.handler.GetMedia)
	images.HEAD("/:name", a.handler.HeadMedia)
	images.OPTIONS("/:name", a.handler.OptionsMedia)
}

func (a *API) registerAuthImageRoutes(images *echo.Group) {
	gated := images.Group("")
	gated.Use(a.auth.Middleware)
	gated.POST("/addNewImages", a.handler.AddNewMedia)
	gated.POST("/upload", a.handler.UploadMedia)
	gated.DELETE("/:name", a.handler.DeleteMedia)
}
