package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fieldlog/api/internal/apperr"
	"fieldlog/api/internal/cache"
	"fieldlog/api/internal/config"
	"fieldlog/api/internal/middleware"
	"fieldlog/api/internal/models"
	"fieldlog/api/internal/service"
)

// Pinger covers the backends the health endpoint probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	userService  *service.UserService
	visitService *service.VisitService
	users        service.UserStore
	userCache    *cache.UserCache
	db           Pinger
	blobHealth   Pinger
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	users service.UserStore,
	visits service.VisitStore,
	blobs service.BlobStore,
	userCache *cache.UserCache,
	db Pinger,
	blobHealth Pinger,
) HandlerSet {
	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  service.NewAuthService(users, cfg.Security, log),
		userService:  service.NewUserService(users, visits, blobs, userCache, log),
		visitService: service.NewVisitService(visits, blobs, log),
		users:        users,
		userCache:    userCache,
		db:           db,
		blobHealth:   blobHealth,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/healthz", h.Health)

	authGate := middleware.Auth(h.cfg.Security, h.users, h.userCache)
	adminGate := middleware.RequireRole(models.RoleAdmin)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.GET("/me", authGate, h.Me)
	}

	users := router.Group("/users", authGate, adminGate)
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	visits := router.Group("/visits", authGate)
	{
		visits.POST("", h.CreateVisit)
		visits.GET("/my-visits", h.MyVisits)
		visits.GET("/all", adminGate, h.AllVisits)
		visits.GET("/user/:userId", adminGate, h.VisitsByUser)
		visits.DELETE("/:id", h.DeleteVisit)
	}
}

// writeError maps a service error onto the taxonomy's status code with a
// stable message body. Backend detail stays in the logs.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.UserMessage(err)})
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}

type visitResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	PlaceName string          `json:"placeName"`
	Location  models.Location `json:"location"`
	ImageURL  string          `json:"imageUrl"`
	CreatedAt time.Time       `json:"createdAt"`
	Owner     *models.Owner   `json:"user,omitempty"`
}

func toVisitResponse(visit models.Visit) visitResponse {
	return visitResponse{
		ID:        visit.ID,
		UserID:    visit.OwnerID,
		PlaceName: visit.PlaceName,
		Location:  visit.Location,
		ImageURL:  visit.ImageURL,
		CreatedAt: visit.CreatedAt,
	}
}

func toVisitWithOwnerResponse(item models.VisitWithOwner) visitResponse {
	resp := toVisitResponse(item.Visit)
	owner := item.Owner
	resp.Owner = &owner
	return resp
}
