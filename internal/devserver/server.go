// Package devserver is an in-memory double of the Space backend API. It
// exists so the client can be developed and tested end to end without a
// deployed backend; it implements the same route contract the gateway
// speaks, including the conflict answers the reconciler absorbs.
package devserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of issued credentials.
const TokenTTL = 24 * time.Hour

// Server holds the dependencies for the dev API server.
type Server struct {
	state  *State
	secret []byte
	log    *slog.Logger
	now    func() time.Time
}

// New creates a dev server over the given state.
func New(state *State, secret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		state:  state,
		secret: []byte(secret),
		log:    log,
		now:    time.Now,
	}
}

// RegisterRoutes wires the route contract onto a gin engine.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")
	{
		api.POST("/auth/login", s.loginHandler)
		api.POST("/auth/register", s.registerHandler)

		api.GET("/user/:id", s.getUserHandler)
		api.GET("/posts", s.getPostsHandler)
		api.GET("/users/:id/posts", s.getUserPostsHandler)

		authed := api.Group("")
		authed.Use(s.AuthMiddleware())
		{
			authed.PUT("/user/:id", s.updateUserHandler)

			authed.POST("/posts", s.createPostHandler)
			authed.PUT("/posts/:id", s.updatePostHandler)
			authed.DELETE("/posts/:id", s.deletePostHandler)
			authed.POST("/posts/:id/like", s.likePostHandler)
			authed.POST("/posts/:id/comments", s.createCommentHandler)

			authed.PUT("/comments/:id", s.updateCommentHandler)
			authed.DELETE("/comments/:id", s.deleteCommentHandler)
			authed.POST("/comments/:id/like", s.likeCommentHandler)

			authed.POST("/users/:id/follow", s.followHandler)
			authed.DELETE("/users/:id/follow", s.unfollowHandler)
		}
	}

	r.GET("/health", s.healthHandler)

	return r
}

// AuthMiddleware validates the bearer credential and injects the caller's
// user ID into the request context.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: no bearer token",
			})
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			s.log.Warn("invalid token", "error", errString(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: invalid token",
			})
			return
		}

		userID, _ := claims["id"].(string)
		if _, ok := s.state.user(userID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: unknown user",
			})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// IssueToken signs a credential for userID with the observed claim set.
func (s *Server) IssueToken(userID string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   userID,
		"role": "user",
		"iat":  now.Unix(),
		"exp":  now.Add(TokenTTL).Unix(),
	})
	return tok.SignedString(s.secret)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
