package routes

import (
	"net/http"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/config"
	"org-task-management-api/internal/handlers"
	"org-task-management-api/internal/middleware"
	"org-task-management-api/internal/realtime"
	"org-task-management-api/internal/service"
	"org-task-management-api/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server is the assembled API: the gin engine plus the shared state the
// process keeps alive next to it.
type Server struct {
	Engine   *gin.Engine
	Resolver *access.Resolver
	Hub      *realtime.Hub
	cfg      *config.Config
}

// Handler returns the engine wrapped in CORS.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.cfg.CORS)(s.Engine)
}

func SetupRoutes(cfg *config.Config, db *gorm.DB) *Server {
	st := store.New(db)
	hub := realtime.NewHub()
	resolver := access.NewResolver(st, cfg.Cache.MembershipTTL)

	authHandler := handlers.NewAuthHandler(service.NewAuthService(st))
	taskHandler := handlers.NewTaskHandler(service.NewTaskService(st, hub), service.NewDashboardService(st))
	orgHandler := handlers.NewOrgHandler(service.NewOrgService(st, resolver, hub, cfg.InviteLink))
	wsHandler := handlers.NewWSHandler(hub, cfg.CORS.AllowedOrigins)

	ginRouter := gin.New()
	ginRouter.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Organization Task Management API is running",
		})
	})

	api := ginRouter.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
	}

	// Websocket only needs the token; memberships are not consulted.
	api.GET("/ws", middleware.JWTAuthMiddleware(), wsHandler.Connect)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(), middleware.LoadActor(resolver), middleware.OrgContext())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)

		tasks := protected.Group("/tasks")
		tasks.GET("/dashboard-data", taskHandler.GetDashboardData)
		tasks.GET("/user-dashboard-data", taskHandler.GetUserDashboardData)
		tasks.GET("/master/:id", taskHandler.GetMasterTask)
		tasks.DELETE("/master/:id", taskHandler.DeleteMasterTask)
		tasks.GET("", taskHandler.GetTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTaskByID)
		tasks.PUT("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
		tasks.PUT("/:id/status", taskHandler.UpdateTaskStatus)
		tasks.PUT("/:id/todo", taskHandler.UpdateTaskChecklist)
		tasks.PUT("/:id/review", taskHandler.ReviewTask)

		orgs := protected.Group("/orgs")
		orgs.POST("", orgHandler.CreateOrganization)
		orgs.GET("", orgHandler.GetMyOrganizations)
		orgs.POST("/join/:inviteSlug", orgHandler.RequestToJoin)
		orgs.GET("/:orgId/invite-link", orgHandler.GetInviteLink)
		orgs.POST("/:orgId/approve", orgHandler.ApproveJoinRequest)
		orgs.POST("/:orgId/reject", orgHandler.RejectJoinRequest)
		orgs.GET("/:orgId/members", orgHandler.GetMembers)
		orgs.GET("/:orgId/join-requests", orgHandler.GetJoinRequests)
	}

	return &Server{Engine: ginRouter, Resolver: resolver, Hub: hub, cfg: cfg}
}
