package handler

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
	"collegemate/backend/internal/views"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenCookie = "token"
	sessionKey  = "session"
	viewerKey   = "viewer"
)

// credentialsFrom collects what is forwarded upstream: the bearer token, or a
// ?token= query parameter (browsers cannot set headers on websockets), plus
// every cookie.
func credentialsFrom(r *http.Request) apiclient.Credentials {
	creds := apiclient.Credentials{Cookies: r.Cookies()}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		creds.Bearer = strings.TrimSpace(auth[len("Bearer "):])
	} else if t := r.URL.Query().Get("token"); t != "" {
		creds.Bearer = t
	}
	return creds
}

// viewerFrom reads role and user id from the token claims without verifying
// the signature. The result only decides which controls a view offers.
func viewerFrom(creds apiclient.Credentials) views.Viewer {
	raw := creds.Bearer
	if raw == "" {
		for _, c := range creds.Cookies {
			if c.Name == tokenCookie {
				raw = c.Value
			}
		}
	}

	v := views.Viewer{Role: models.RoleStudent}
	if raw == "" {
		return v
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return v
	}
	if role, ok := claims["role"].(string); ok {
		v.Role = models.ParseRole(role)
	}
	for _, k := range []string{"id", "_id", "userId", "sub"} {
		if id, ok := claims[k].(string); ok && id != "" {
			v.UserID = id
			break
		}
	}
	return v
}

// RequireSession resolves the caller's session from its credentials.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := credentialsFrom(c.Request)
		viewer := viewerFrom(creds)
		s, err := h.Registry.Get(creds, viewer.Role, viewer.UserID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Set(sessionKey, s)
		c.Set(viewerKey, viewer)
		c.Next()
	}
}

func sessionOf(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func viewerOf(c *gin.Context) views.Viewer {
	return c.MustGet(viewerKey).(views.Viewer)
}
