package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/todo-api/internal/middleware"
)

// Routes собирает все обработчики и middleware для регистрации маршрутов
type Routes struct {
	Auth        *AuthHandler
	Todos       *TodoHandler
	Health      *HealthHandler
	RequireAuth gin.HandlerFunc
	AuthLimit   gin.HandlerFunc // nil - без ограничения
}

// Register вешает маршруты API на /api
func (r Routes) Register(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/health", r.Health.Health)

	public := api.Group("")
	if r.AuthLimit != nil {
		public.Use(r.AuthLimit)
	}
	{
		public.POST("/register", r.Auth.Register)
		public.POST("/verify-otp", r.Auth.VerifyOTP)
		public.POST("/login", r.Auth.Login)
		public.POST("/resend-otp", r.Auth.ResendOTP)
	}

	authed := api.Group("", r.RequireAuth)
	{
		authed.POST("/logout", r.Auth.Logout)
		authed.GET("/me", r.Auth.Me)

		todos := authed.Group("/todos")
		todos.GET("", r.Todos.List)
		todos.POST("", r.Todos.Create)
		todos.GET("/export", r.Todos.Export)
		todos.GET("/status-options", r.Todos.StatusOptions)
		todos.GET("/priority-options", r.Todos.PriorityOptions)
		todos.DELETE("/bulk-delete", r.Todos.BulkDelete)

		todo := todos.Group("/:id", middleware.ExtractUintParam("id", "todoID"))
		todo.GET("", r.Todos.Get)
		todo.PUT("", r.Todos.Update)
		todo.PATCH("", r.Todos.Update)
		todo.DELETE("", r.Todos.Delete)
		todo.GET("/download-pdf", r.Todos.DownloadPDF)
		todo.DELETE("/delete-pdf", r.Todos.DeletePDF)
	}
}
