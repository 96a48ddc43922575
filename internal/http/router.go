package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"anpr-dashboard/internal/config"
)

// NewRouter builds the gin engine with middleware, templates, the static
// CSV directory and all routes. gin's mode must be set before calling it.
func NewRouter(h *Handler, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), CORS(cfg.CORS))
	r.SetHTMLTemplate(h.renderer.Templates())

	if dir := cfg.Feed.StaticDir; dir != "" {
		r.Static("/ml-data", dir)
	}

	h.Register(r)
	return r
}
