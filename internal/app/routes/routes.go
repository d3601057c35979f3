package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/heilo27/rightrudder/internal/app/controllers"
	"github.com/heilo27/rightrudder/internal/middleware"
	"github.com/heilo27/rightrudder/internal/pkg/auth"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	templateController *controllers.TemplateController,
	assignmentController *controllers.AssignmentController,
	syncController *controllers.SyncController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	public := v1.Group("/auth")
	{
		public.POST("/register", authController.Register)
		public.POST("/login", authController.Login)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	authenticated.GET("/auth/me", authController.Me)

	// Instructor-owned fields are only writable with an instructor token;
	// the student app reads through the shared zone, not this surface.
	instructor := authenticated.Group("")
	instructor.Use(authMiddleware.RequireRole(auth.RoleInstructor))
	{
		students := instructor.Group("/students")
		{
			students.POST("", studentController.Create)
			students.GET("", studentController.List)
			students.GET("/:id", studentController.Get)
			students.PUT("/:id", studentController.Update)
			students.DELETE("/:id", studentController.Delete)

			students.GET("/:id/conflicts", studentController.ListConflicts)
			students.POST("/:id/conflicts/resolve", studentController.ResolveConflicts)

			students.POST("/:id/share", studentController.CreateShare)
			students.GET("/:id/share", studentController.GetShare)
			students.DELETE("/:id/share", studentController.RevokeShare)

			students.POST("/:id/assignments", assignmentController.Assign)
			students.GET("/:id/assignments", assignmentController.ListByStudent)

			students.POST("/:id/sync", syncController.SyncStudent)
		}

		templates := instructor.Group("/templates")
		{
			// Export and import sit above the :id routes so gin does not
			// treat the literal segments as ids.
			templates.GET("/export", templateController.Export)
			templates.POST("/import", templateController.Import)

			templates.POST("", templateController.Create)
			templates.GET("", templateController.List)
			templates.GET("/:id", templateController.Get)
			templates.PUT("/:id", templateController.Update)
			templates.DELETE("/:id", templateController.Delete)

			templates.POST("/:id/items", templateController.AddItem)
			templates.POST("/:id/items/reorder", templateController.ReorderItems)
			templates.PUT("/:id/items/:itemId", templateController.UpdateItem)
			templates.DELETE("/:id/items/:itemId", templateController.DeleteItem)
		}

		assignments := instructor.Group("/assignments")
		{
			assignments.GET("/:id", assignmentController.Get)
			assignments.DELETE("/:id", assignmentController.Remove)
			assignments.GET("/:id/progress", assignmentController.Progress)
			assignments.PUT("/:id/comments", assignmentController.UpdateComments)
			assignments.PUT("/:id/dual-given", assignmentController.UpdateDualGiven)
			assignments.PUT("/:id/items/:itemId", assignmentController.UpdateItemCompletion)
		}

		sync := instructor.Group("/sync")
		{
			sync.GET("/status", syncController.Status)
			sync.POST("/replay", syncController.Replay)
			sync.GET("/operations/dead-letter", syncController.ListDeadLettered)
			sync.POST("/operations/:id/reset", syncController.ResetOperation)
			sync.DELETE("/operations/:id", syncController.DeleteOperation)
		}

		instructor.POST("/integrity/verify", syncController.VerifyIntegrity)
	}
}
