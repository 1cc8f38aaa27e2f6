package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yutasaka/fleamarket-backend/internal/blob"
	"github.com/yutasaka/fleamarket-backend/internal/handler"
	appmw "github.com/yutasaka/fleamarket-backend/internal/middleware"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"github.com/yutasaka/fleamarket-backend/internal/service"
	"gorm.io/gorm"
)

type Server struct {
	e        *echo.Echo
	itemRepo repository.ItemRepository
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	readRepo repository.ReadStateRepository
	favRepo  repository.FavoriteRepository
	sha      string
	build    string
}

type Options struct {
	FirebaseProjectID string
	Uploader          blob.Uploader
	GitSHA            string
	BuildTime         string
}

func New(db *gorm.DB, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	itemRepo := repository.NewItemRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	readRepo := repository.NewReadStateRepository(db)
	favRepo := repository.NewFavoriteRepository(db)

	itemSvc := service.NewItemService(itemRepo, opts.Uploader)
	chatSvc := service.NewChatService(convRepo, msgRepo, readRepo, itemRepo, opts.Uploader)
	favSvc := service.NewFavoriteService(favRepo, itemRepo)

	itemHandler := handler.NewItemHandler(itemSvc, favSvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	favHandler := handler.NewFavoriteHandler(favSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.GitSHA,
			"build_time": opts.BuildTime,
		})
	})

	api := e.Group("/api")

	requireAuth := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if opts.FirebaseProjectID != "" {
		authMw, err := appmw.NewAuthMiddleware(context.Background(), opts.FirebaseProjectID)
		if err != nil {
			e.Logger.Fatalf("failed to init firebase auth: %v", err)
		}
		requireAuth = authMw.RequireAuth
	}

	api.POST("/items", itemHandler.Create, requireAuth)
	api.PUT("/items/:id", itemHandler.Update, requireAuth)
	api.POST("/items/:id/images", itemHandler.AttachImage, requireAuth)
	api.GET("/me/items", itemHandler.ListMine, requireAuth)
	api.POST("/uploads/images", itemHandler.UploadImage, requireAuth)
	api.POST("/items/:id/favorite", favHandler.Toggle, requireAuth)
	api.GET("/me/favorites", favHandler.ListMine, requireAuth)
	api.POST("/items/:id/conversations", chatHandler.CreateFromItem, requireAuth)
	api.GET("/conversations", chatHandler.List, requireAuth)
	api.GET("/conversations/:id", chatHandler.Get, requireAuth)
	api.DELETE("/conversations/:id", chatHandler.Delete, requireAuth)
	api.GET("/conversations/:id/messages", chatHandler.ListMessages, requireAuth)
	api.POST("/conversations/:id/messages", chatHandler.CreateMessage, requireAuth)
	api.POST("/conversations/:id/images", chatHandler.CreateImageMessage, requireAuth)
	api.POST("/conversations/:id/read", chatHandler.MarkRead, requireAuth)
	api.GET("/conversations/:id/unread", chatHandler.Unread, requireAuth)
	api.GET("/items", itemHandler.List)
	api.GET("/items/:id", itemHandler.Get)

	return &Server{
		e:        e,
		itemRepo: itemRepo,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		readRepo: readRepo,
		favRepo:  favRepo,
		sha:      opts.GitSHA,
		build:    opts.BuildTime,
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// SetDB late-binds the database so the server can accept traffic while
// the connection is still being established.
func (s *Server) SetDB(db *gorm.DB) {
	s.itemRepo.SetDB(db)
	s.convRepo.SetDB(db)
	s.msgRepo.SetDB(db)
	s.readRepo.SetDB(db)
	s.favRepo.SetDB(db)
}
