package server

import (
	"chat_queue/internal/handlers"
	"chat_queue/internal/logger"
	"chat_queue/internal/queue"
	"chat_queue/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Deps struct {
	Engine *queue.Engine
	WS     *ws.Handler
	// Auth кладёт userID в контекст запроса.
	Auth gin.HandlerFunc
	Log  zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	qh := handlers.NewQueueHandler(d.Engine)
	queueGroup := r.Group("/api/queue", d.Auth)
	{
		queueGroup.GET("", qh.ListQueue)
		queueGroup.POST("/initiate", qh.InitiateChat)
		queueGroup.POST("/dequeue", qh.DequeueUser)
		queueGroup.GET("/position", qh.QueuePosition)
		queueGroup.GET("/ws", d.WS.QueueWebSocketHandler)
		queueGroup.GET("/events", d.WS.QueueEventsWebSocketHandler)
	}

	return r
}
