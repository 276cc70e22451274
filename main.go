package main

import (
	"log"
	"os"
	"time"

	"minichat/internal/api"
	"minichat/internal/auth"
	"minichat/internal/cache"
	"minichat/internal/completion"
	"minichat/internal/config"
	"minichat/internal/service/chat"
	"minichat/internal/storage"
	"minichat/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("MINICHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("MINICHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, models, messages, user_tokens.
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// The token cache is optional; without redis every lookup hits SQL.
	tokenCache, err := cache.New(cfg)
	if err != nil {
		log.Printf("redis unavailable, token cache disabled: %v", err)
		tokenCache = nil
	} else {
		defer tokenCache.Close()
	}

	st := store.New(db)
	chatService := chat.NewService(st, completion.NewService(cfg))
	authService := auth.NewService(db, tokenCache, 24*time.Hour)
	accounts := auth.NewAccounts(st)
	handlers := api.NewHandler(chatService, authService, accounts)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
