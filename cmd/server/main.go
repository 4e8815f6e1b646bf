package main

import (
	"log"
	"time"

	"github.com/uestcqxq/tetrisByKiro/internal/config"
	"github.com/uestcqxq/tetrisByKiro/internal/database"
	"github.com/uestcqxq/tetrisByKiro/internal/handlers"
	"github.com/uestcqxq/tetrisByKiro/internal/middleware"
	"github.com/uestcqxq/tetrisByKiro/internal/services"
	"github.com/uestcqxq/tetrisByKiro/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Tetris Game API
// @version         1.0
// @description     REST and WebSocket API for the Tetris leaderboard backend
// @host            localhost:8080
// @BasePath        /

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub(time.Duration(cfg.WSWriteTimeoutSec) * time.Second)

	userService := services.NewUserService(db)
	gameService := services.NewGameService(db, cfg.MaxRecordsPerUser)
	rankingService := services.NewRankingService(db)

	broadcaster := ws.NewBroadcaster(hub, rankingService, cfg.LeaderboardSize)
	submissionService := services.NewSubmissionService(gameService, rankingService, broadcaster)

	cleanupService := services.NewCleanupService(
		db,
		time.Duration(cfg.CleanupIntervalHours)*time.Hour,
		cfg.RetentionDays,
		cfg.InactiveUserDays,
	)
	cleanupService.Start()
	defer cleanupService.Stop()

	userHandler := handlers.NewUserHandler(userService)
	gameHandler := handlers.NewGameHandler(submissionService, gameService)
	leaderboardHandler := handlers.NewLeaderboardHandler(rankingService)
	healthHandler := handlers.NewHealthHandler(db)
	wsHandler := handlers.NewWSHandler(hub, broadcaster, submissionService, rankingService, cfg.LeaderboardSize)

	r := gin.Default()

	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api")
	{
		api.POST("/users", userHandler.CreateUser)
		api.GET("/users/:id", userHandler.GetUser)
		api.GET("/users/:id/rank", leaderboardHandler.GetUserRank)
		api.GET("/users/:id/games", gameHandler.GetUserHistory)
		api.GET("/users/:id/statistics", leaderboardHandler.GetUserStatistics)

		api.POST("/games", gameHandler.SaveGame)
		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/stats", leaderboardHandler.GetStats)
	}

	health := r.Group("/health")
	{
		health.GET("/ping", healthHandler.Ping)
		health.GET("/database", healthHandler.Database)
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
