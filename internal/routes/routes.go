package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/arzan03/coursehub/internal/config"
	"github.com/arzan03/coursehub/internal/handlers"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
	"github.com/arzan03/coursehub/internal/services"
)

// New builds the HTTP application with every route mounted.
func New(cfg *config.Config, svc *services.Services, log logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "coursehub",
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    int(cfg.MediaMaxBytes) + 1<<20,
		ReadTimeout:  2 * time.Minute,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if !cfg.IsTest() {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	h := handlers.New(svc, handlers.CookieConfig{
		User:   cfg.UserCookie,
		Admin:  cfg.AdminCookie,
		Secure: cfg.CookieSecure,
	}, log)

	userSession := middleware.RequireSession(svc.Auth, models.SessionUser, cfg.UserCookie)
	adminSession := middleware.RequireSession(svc.Auth, models.SessionAdmin, cfg.AdminCookie)
	can := middleware.RequirePermission

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/session", h.IDTokenLogin)
	auth.Post("/logout", userSession, h.Logout)
	auth.Get("/me", userSession, h.Me)

	profile := api.Group("/profile", userSession)
	profile.Get("/", h.GetProfile)
	profile.Put("/", h.UpdateProfile)
	profile.Put("/password", h.ChangePassword)
	profile.Post("/avatar", h.UploadAvatar)

	courses := api.Group("/courses")
	courses.Get("/", h.ListCourses)
	courses.Get("/:id", middleware.OptionalSession(svc.Auth, models.SessionAdmin, cfg.AdminCookie), h.GetCourse)
	courses.Post("/:id/enroll", userSession, h.EnrollFree)

	api.Get("/categories", h.ListCategories)
	api.Get("/categories/:id", h.GetCategory)
	api.Get("/tracks", h.ListTracks)
	api.Get("/tracks/:id", h.GetTrack)
	api.Get("/announcements", userSession, h.ListAnnouncements)

	cart := api.Group("/cart", userSession)
	cart.Get("/", h.GetCart)
	cart.Post("/", h.AddToCart)
	cart.Delete("/", h.ClearCart)
	cart.Delete("/:courseId", h.RemoveFromCart)

	api.Post("/checkout", userSession, h.Checkout)
	api.Get("/checkout/verify", userSession, h.VerifyPayment)
	api.Get("/orders", userSession, h.MyOrders)
	api.Post("/webhooks/paystack", h.PaystackWebhook)

	api.Get("/enrollments", userSession, h.ListEnrollments)
	api.Patch("/enrollments/:courseId/progress", userSession, h.CompleteLesson)

	notifications := api.Group("/notifications", userSession)
	notifications.Get("/", h.ListNotifications)
	notifications.Patch("/:id/read", h.MarkNotificationRead)
	notifications.Post("/read-all", h.MarkAllNotificationsRead)

	api.Post("/admin/auth", h.AdminLogin)
	api.Delete("/admin/auth", adminSession, h.AdminLogout)

	admin := api.Group("/admin", adminSession, middleware.RequireRole(roles.Staff))
	admin.Get("/me", h.Me)
	admin.Get("/stats", can(roles.ViewDashboard), h.Stats)

	admin.Get("/users", can(roles.ViewUsers), h.ListUsers)
	admin.Get("/users/:id", can(roles.ViewUsers), h.GetUser)
	admin.Post("/users", can(roles.ManageUsers), h.CreateUser)
	admin.Put("/users/:id", can(roles.ManageUsers), h.UpdateUser)
	admin.Patch("/users/:id/role", can(roles.ManageRoles), h.ChangeUserRole)
	admin.Delete("/users/:id", can(roles.ManageUsers), h.DeleteUser)

	admin.Get("/courses", can(roles.ManageCourses), h.AdminListCourses)
	admin.Post("/courses", can(roles.ManageCourses), h.CreateCourse)
	admin.Get("/courses/:id", can(roles.ManageCourses), h.GetCourse)
	admin.Put("/courses/:id", can(roles.ManageCourses), h.UpdateCourse)
	admin.Delete("/courses/:id", can(roles.ManageCourses), h.DeleteCourse)
	admin.Patch("/courses/:id/status", can(roles.ManageCourses), h.SetCourseStatus)
	admin.Post("/courses/:id/image", can(roles.ManageCourses), h.UploadCourseImage)

	admin.Post("/categories", can(roles.ManageCategories), h.CreateCategory)
	admin.Put("/categories/:id", can(roles.ManageCategories), h.UpdateCategory)
	admin.Delete("/categories/:id", can(roles.ManageCategories), h.DeleteCategory)

	admin.Get("/tracks", can(roles.ManageTracks), h.AdminListTracks)
	admin.Post("/tracks", can(roles.ManageTracks), h.CreateTrack)
	admin.Put("/tracks/:id", can(roles.ManageTracks), h.UpdateTrack)
	admin.Delete("/tracks/:id", can(roles.ManageTracks), h.DeleteTrack)

	admin.Get("/announcements", can(roles.ManageAnnouncements), h.ListAnnouncements)
	admin.Post("/announcements", can(roles.ManageAnnouncements), h.CreateAnnouncement)
	admin.Put("/announcements/:id", can(roles.ManageAnnouncements), h.UpdateAnnouncement)
	admin.Delete("/announcements/:id", can(roles.ManageAnnouncements), h.DeleteAnnouncement)

	admin.Post("/notifications", can(roles.SendNotifications),
		middleware.RateLimit(cfg.NotifyRateLimit, time.Minute), h.Broadcast)
	admin.Get("/audit-logs", can(roles.ViewAuditLogs), h.ListAuditLogs)
	admin.Get("/orders", can(roles.ManageOrders), h.ListOrders)

	admin.Get("/media", can(roles.UploadMedia), h.ListMedia)
	admin.Post("/media", can(roles.UploadMedia), h.UploadMedia)
	admin.Get("/media/:id/url", can(roles.UploadMedia), h.PresignedMediaURL)
	admin.Delete("/media/:id", can(roles.UploadMedia), h.DeleteMedia)

	return app
}
