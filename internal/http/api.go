package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"nestbook/internal/auth"
	"nestbook/internal/metrics"
	"nestbook/internal/service"
	"nestbook/internal/session"
)

//go:embed templates/*.html
var templates embed.FS

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler wires HTTP routes to the auth service and session manager.
type Handler struct {
	auth     service.AuthService
	sessions *session.Manager
	limiter  *RateLimiter
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   logrus.FieldLogger
	cookie   CookieConfig
}

type Deps struct {
	Auth     service.AuthService
	Sessions *session.Manager
	Limiter  *RateLimiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logrus.FieldLogger
	Cookie   CookieConfig
}

func NewHandler(d Deps) *Handler {
	if d.Cookie.Name == "" {
		d.Cookie.Name = "nestbook_session"
	}
	return &Handler{
		auth:     d.Auth,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		metrics:  d.Metrics,
		gatherer: d.Gatherer,
		logger:   d.Logger,
		cookie:   d.Cookie,
	}
}

// NewRouter builds a gin engine with the page templates loaded and all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(templates, "templates/*.html")))
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(
		h.requestLogger(),
		gin.Recovery(),
		securityHeaders(h.cookie.Secure),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	pages := router.Group("/", h.loadSession())
	{
		pages.GET("/", h.home)

		authGroup := pages.Group("/auth")
		{
			authGroup.GET("/login", h.getLogin)
			authGroup.POST("/login", rateLimit(h.limiter), h.postLogin)
			authGroup.GET("/signup", h.getSignup)
			authGroup.POST("/signup", rateLimit(h.limiter), h.postSignup)
			authGroup.POST("/logout", h.postLogout)
			authGroup.GET("/forgot-password", h.getForgotPassword)
			authGroup.POST("/forgot-password", rateLimit(h.limiter), h.postForgotPassword)
			authGroup.GET("/reset-password", h.getResetPassword)
			authGroup.POST("/reset-password", rateLimit(h.limiter), h.postResetPassword)
		}

		host := pages.Group("/host", requireAuth())
		{
			host.GET("", h.hostHome)
		}
	}

	router.NoRoute(h.loadSession(), func(c *gin.Context) {
		h.render(c, http.StatusNotFound, "error.html", page{Title: "Page not found"})
	})
}

// page is the data every template receives.
type page struct {
	Title    string
	Auth     auth.State
	Errors   []string
	Email    string
	OldInput signupForm
}

func (h *Handler) render(c *gin.Context, status int, name string, p page) {
	p.Auth = auth.FromContext(c.Request.Context())
	c.HTML(status, name, p)
}

func (h *Handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", page{Title: "Home"})
}

func (h *Handler) hostHome(c *gin.Context) {
	h.render(c, http.StatusOK, "host.html", page{Title: "Host"})
}
