package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/Kyushi/pemoi/internal/app"
	"github.com/Kyushi/pemoi/internal/handler"
	"github.com/Kyushi/pemoi/internal/middleware"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.UserService, app.Cfg)
	category := handler.NewCategoryHandler(app.CategoryService, app.ItemService)
	item := handler.NewItemHandler(app.ItemService, app.Markdown, app.Cfg.MaxUploadSize)
	user := handler.NewUserHandler(app.AuthService, app.UserService, app.ItemService, app.Markdown)
	tumblr := handler.NewTumblrHandler(app.Tumblr, app.ItemService)
	uploads := handler.NewUploadHandler(app.Storage)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Uploads
	prefix := "/" + strings.Trim(app.Cfg.UploadURLPrefix, "/")
	mux.HandleFunc("GET "+prefix+"/{username}/{file}", uploads.Serve)

	// Index
	mux.HandleFunc("GET /{$}", item.Index)

	// Categories
	mux.HandleFunc("GET /categories", category.List)
	mux.HandleFunc("GET /categories/json", category.Export)
	mux.HandleFunc("POST /categories/check", category.CheckName)
	mux.HandleFunc("GET /category/{id}", category.Show)
	mux.HandleFunc("GET /category/{id}/json", category.ExportItems)

	// Items
	mux.HandleFunc("GET /inspiration/{id}", item.Show)
	mux.HandleFunc("GET /inspiration/{id}/json", item.Export)

	// Users
	mux.HandleFunc("GET /user/{id}", user.Show)
	mux.HandleFunc("POST /users/check", user.CheckUsername)

	// Auth - sign-in flow (rate limited)
	rateLimiter := middleware.RateLimitAuth(10, 15*time.Minute)

	mux.HandleFunc("GET /auth/{provider}", rateLimiter(auth.Login))
	mux.HandleFunc("GET /auth/{provider}/callback", rateLimiter(auth.Callback))
	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/me", auth.Me)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("POST /category", middleware.RequireAuth(category.Create))
	mux.HandleFunc("PUT /category/{id}", middleware.RequireAuth(category.Update))
	mux.HandleFunc("DELETE /category/{id}", middleware.RequireAuth(category.Delete))

	mux.HandleFunc("POST /inspiration", middleware.RequireAuth(item.Create))
	mux.HandleFunc("GET /inspiration/mine", middleware.RequireAuth(item.Mine))
	mux.HandleFunc("PUT /inspiration/{id}", middleware.RequireAuth(item.Update))
	mux.HandleFunc("DELETE /inspiration/{id}", middleware.RequireAuth(item.Delete))

	mux.HandleFunc("PATCH /user/{id}", middleware.RequireAuth(user.Update))
	mux.HandleFunc("DELETE /user/{id}", middleware.RequireAuth(user.Delete))

	mux.HandleFunc("GET /tumblr", middleware.RequireAuth(tumblr.Browse))
	mux.HandleFunc("POST /tumblr/save", middleware.RequireAuth(tumblr.Save))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.AuthMiddleware(app.AuthService),
		middleware.RequestLogging,
		chimiddleware.Recoverer,
	)
}
