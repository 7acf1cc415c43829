package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"access-coordinator/logger"
	"access-coordinator/src/controller"
	"access-coordinator/src/events"
	"access-coordinator/src/middleware"
	"access-coordinator/src/service"

	_ "access-coordinator/src/docs"
)

// Dependencies bundles the constructed services the routes are wired to.
// The server builds them once and hands them over here.
type Dependencies struct {
	Middleware *middleware.Middleware
	Admission  *service.AdmissionService
	Lifecycle  *service.LifecycleService
	Extensions *service.ExtensionService
	Notifier   *service.Notifier
	Logs       service.LogStore
	Bus        *events.Bus
}

// NewRouter sets up the router for the access coordinator.
// It creates a new gin.Engine, initializes the controllers and routes,
// and returns the router.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())

	accessController := controller.NewAccessController(deps.Admission)
	sessionController := controller.NewSessionController(deps.Lifecycle)
	queueController := controller.NewQueueController(deps.Admission)
	extensionController := controller.NewExtensionController(deps.Extensions)
	notificationController := controller.NewNotificationController(deps.Notifier)
	logController := controller.NewLogController(deps.Logs)
	streamController := controller.NewStreamController(deps.Bus)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := router.Group("/", deps.Middleware.IdentityRequired())
	{
		authed.GET("/resources", accessController.ListResources)
		authed.POST("/access/request", accessController.RequestAccess)
		authed.POST("/access/withdraw", accessController.Withdraw)

		authed.GET("/resources/:resourceId/sessions", sessionController.ListSessions)
		authed.GET("/resources/:resourceId/queue", queueController.List)
		authed.POST("/sessions/:id/release", sessionController.Release)

		authed.POST("/extensions", extensionController.Create)
		authed.GET("/extensions", extensionController.List)

		authed.GET("/notifications", notificationController.List)
		authed.DELETE("/notifications/:id", notificationController.Ack)

		authed.GET("/stream", streamController.Stream)

		privileged := authed.Group("/", deps.Middleware.PrivilegedRequired())
		{
			privileged.POST("/sessions/:id/terminate", sessionController.Terminate)
			privileged.POST("/queue/entries/:id/pin", queueController.Pin)
			privileged.DELETE("/queue/entries/:id", queueController.Remove)
			privileged.POST("/extensions/:id/decision", extensionController.Decide)
			privileged.GET("/logs", logController.List)
		}
	}

	return router
}
