package routes

import (
	"taskhub/config"
	controller "taskhub/controllers"
	"taskhub/middleware"
	"taskhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Dependencies are the shared handles the HTTP layer is built from.
type Dependencies struct {
	DB               *gorm.DB
	Config           *config.Config
	Issuer           *utils.TokenIssuer
	Mailer           utils.Mailer
	RateLimitStorage fiber.Storage
}

const accessLogFormat = "[${time}] ${status} - ${latency} ${method} ${path}\n"

// NewApp builds the fiber application with every route registered.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "taskhub",
		ErrorHandler: utils.ErrorHandler,
	})

	app.Use(recover.New())

	app.Use(middleware.CORS(middleware.CORSConfigFrom(deps.Config)))

	SetupRoutes(app, deps)
	return app
}

func SetupAuthRoutes(app *fiber.App, deps Dependencies) {
	authController := controller.NewAuthController(deps.DB, deps.Issuer, utils.Logger("auth"))

	auth := app.Group("/auth", logger.New(logger.Config{Format: accessLogFormat}))

	// Public auth endpoints (no authentication required)
	throttle := middleware.AuthRateLimiter(deps.Config.AuthRateLimit, deps.RateLimitStorage)
	auth.Post("/register", throttle, authController.Register)
	auth.Post("/login", throttle, authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(deps.DB, deps.Issuer))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Post("/change-password", authController.ChangePassword)
	protectedAuth.Get("/me", authController.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, deps Dependencies) {
	db := deps.DB

	userController := controller.NewUserController(db, utils.Logger("users"))
	teamController := controller.NewTeamController(db, deps.Mailer, utils.Logger("teams"))
	projectController := controller.NewProjectController(db, utils.Logger("projects"))
	taskController := controller.NewTaskController(db, utils.Logger("tasks"))
	issueController := controller.NewIssueController(db, utils.Logger("issues"))
	reportController := controller.NewReportController(db, utils.Logger("reports"))
	notificationController := controller.NewNotificationController(db, utils.Logger("notifications"))
	dashboardController := controller.NewDashboardController(db, utils.Logger("dashboard"))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(db, deps.Issuer), logger.New(logger.Config{
		Format: accessLogFormat,
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)

	// User routes
	users := api.Group("/users")
	users.Get("/", userController.ListUsers)
	users.Post("/", userController.CreateUser)
	users.Get("/managers", userController.ListManagers)
	users.Get("/:id", userController.GetUser)
	users.Put("/:id/manager", userController.AssignManager)

	// Team routes
	teams := api.Group("/teams")
	teams.Get("/", teamController.GetTeams)
	teams.Post("/", teamController.CreateTeam)
	teams.Get("/:id", teamController.GetTeam)
	teams.Get("/:id/permissions", teamController.GetPermissions)
	teams.Post("/:id/members", teamController.AddMember)
	teams.Delete("/:id/members/:userId", teamController.RemoveMember)
	teams.Post("/:id/update-requests", teamController.RequestUpdate)
	teams.Get("/:id/update-requests", teamController.GetUpdateRequests)

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/", projectController.CreateProject)
	projects.Get("/", projectController.GetProjects)
	projects.Get("/:id", projectController.GetProject)
	projects.Put("/:id", projectController.UpdateProject)

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Post("/", taskController.CreateTask)
	tasks.Get("/", taskController.GetTasks)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Put("/:id", taskController.UpdateTask)

	// Issue routes
	issues := api.Group("/issues")
	issues.Post("/", issueController.CreateIssue)
	issues.Get("/", issueController.GetIssues)
	issues.Get("/:id", issueController.GetIssue)
	issues.Put("/:id", issueController.UpdateIssue)

	// Report routes
	reports := api.Group("/reports")
	reports.Post("/download", reportController.DownloadReport)
	reports.Get("/:userId", reportController.GetReportSummary)

	// Notification routes
	notifications := api.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Put("/read-all", notificationController.MarkAllRead)
	notifications.Put("/:id/read", notificationController.MarkRead)
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, deps)

	// Setup API routes
	SetupAPIRoutes(app, deps)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "The requested resource was not found",
		})
	})
}
