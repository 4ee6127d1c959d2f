package routes

import (
	adminapi "ourtextscores/internal/api/admin"
	authapi "ourtextscores/internal/api/auth"
	sourcesapi "ourtextscores/internal/api/sources"
	"ourtextscores/internal/api/users"
	worksapi "ourtextscores/internal/api/works"
	"ourtextscores/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/verify", users.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Public catalog browsing
	r.GET("/works", worksapi.ListWorks)
	r.GET("/works/:id", worksapi.GetWork)
	r.GET("/works/:id/sources", worksapi.ListSources)
	r.GET("/works/:id/sources/:sourceId", worksapi.GetSource)
	r.GET("/works/:id/sources/:sourceId/revisions", worksapi.ListRevisions)
	r.GET("/works/:id/sources/:sourceId/branches", worksapi.ListBranches)
	r.GET("/works/:id/sources/:sourceId/branches/:name/head", worksapi.GetBranchHead)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", users.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.POST("/works/:id/sources", sourcesapi.CreateSource)
	auth.DELETE("/works/:id/sources/:sourceId", sourcesapi.DeleteSource)

	auth.POST("/works/:id/sources/:sourceId/revisions", sourcesapi.AppendRevision)
	auth.POST("/works/:id/sources/:sourceId/revisions/:revisionId/approve", sourcesapi.ApproveRevision)
	auth.POST("/works/:id/sources/:sourceId/revisions/:revisionId/reject", sourcesapi.RejectRevision)
	auth.PUT("/works/:id/sources/:sourceId/revisions/:revisionId/derivatives", sourcesapi.UpsertDerivatives)

	auth.PUT("/works/:id/sources/:sourceId/projects/:projectId", sourcesapi.LinkProject)
	auth.DELETE("/works/:id/sources/:sourceId/projects/:projectId", sourcesapi.UnlinkProject)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/user/:id", adminapi.GetUserDetails)

	admin.POST("/works/import", adminapi.ImportWork)
	admin.POST("/works/:id/sources/:sourceId/verify", adminapi.VerifySource)
	admin.POST("/works/:id/sources/:sourceId/flag", adminapi.FlagSource)
	admin.POST("/takedown", adminapi.Takedown)
	admin.POST("/restore", adminapi.Restore)
}
