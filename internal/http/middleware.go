package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nestbook/internal/auth"
	"nestbook/internal/domain"
	"nestbook/internal/logging"
	"nestbook/internal/session"
)

const sessionKey = "nestbook.session"

// requestLogger logs each request with method, path, status, latency and client IP.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.RecordRequest(c.Request.Method, route, strconv.Itoa(status), latency)

		entry := h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency,
			"remote":  c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// loadSession attaches the caller's session and login state to the request.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(h.cookie.Name)
		sess, err := h.sessions.Load(c.Request.Context(), cookie)
		if err != nil {
			logging.WithError(h.logger, err).Warn("load session")
		}

		touched, err := h.sessions.Touch(c.Request.Context(), sess)
		switch {
		case errors.Is(err, session.ErrSessionGone):
			// logged out by a concurrent request
			sess = h.sessions.NewAnonymous()
			h.clearSessionCookie(c)
		case err != nil:
			logging.WithError(h.logger, err).Warn("touch session")
		case touched:
			h.setSessionCookie(c, sess)
		}

		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(auth.WithState(c.Request.Context(), auth.StateOf(sess)))
		c.Next()
	}
}

// securityHeaders sets the browser hardening headers on every response.
// HSTS is only sent when the session cookie is marked secure.
func securityHeaders(https bool) gin.HandlerFunc {
	cfg := secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; form-action 'self'; frame-ancestors 'none'",
	}
	if https {
		cfg.STSSeconds = 180 * 24 * 60 * 60
		cfg.STSIncludeSubdomains = true
	}
	return secure.New(cfg)
}

// requireAuth sends anonymous requests to the login page.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsLoggedIn(c.Request.Context()) {
			c.Redirect(http.StatusFound, "/auth/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*domain.Session)
	return sess
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *domain.Session) {
	value, err := h.sessions.Cookie(sess)
	if err != nil {
		logging.WithError(h.logger, err).Error("sign session cookie")
		return
	}
	h.writeCookie(c, value, int(h.sessions.TTL().Seconds()))
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	h.writeCookie(c, "", -1)
}

func (h *Handler) writeCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
