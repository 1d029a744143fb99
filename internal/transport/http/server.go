package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"askdoc/internal/ai"
	appsvc "askdoc/internal/app"
	"askdoc/internal/bootstrap"
	"askdoc/internal/cache"
	rabbitmqClient "askdoc/internal/platform/rabbitmq"
	"askdoc/internal/repository"
	"askdoc/internal/transport/http/handler"
	"askdoc/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	recordRepo := repository.NewQueryRecordRepository(app.MySQL)

	embedder := ai.NewEmbeddingClient(ai.Config{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
	})
	embeddingCache := cache.NewEmbeddingCache(
		app.Redis,
		time.Duration(app.Config.Redis.EmbeddingTTLSeconds)*time.Second,
	)
	queryPublisher := rabbitmqClient.NewQueryPublisher(app.MQConn, app.Config.RabbitMQ.QueryPersistQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	qaService := appsvc.NewQAService(
		docRepo,
		recordRepo,
		embedder,
		embeddingCache,
		queryPublisher,
		time.Duration(app.Config.LLM.EmbedTimeoutSeconds)*time.Second,
	)

	authHandler := handler.NewAuthHandler(authService)
	qaHandler := handler.NewQAHandler(qaService)

	router.POST("/register", authHandler.Register)
	router.POST("/token", authHandler.Token)

	authed := router.Group("/")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	authed.POST("/ingest", qaHandler.Ingest)
	authed.POST("/upload-pdf", qaHandler.UploadPDF)
	authed.POST("/ask", qaHandler.Ask)
	authed.PUT("/toggle-document/:id", qaHandler.ToggleDocument)
	authed.GET("/documents", qaHandler.ListDocuments)
	authed.GET("/history", qaHandler.History)

	return router
}
