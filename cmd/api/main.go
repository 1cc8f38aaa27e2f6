package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yutasaka/fleamarket-backend/internal/blob"
	"github.com/yutasaka/fleamarket-backend/internal/config"
	"github.com/yutasaka/fleamarket-backend/internal/db"
	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/server"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	var uploader blob.Uploader
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		u, err := blob.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("failed to init storage: %v", err)
		}
		defer u.Close()
		uploader = u
	} else {
		log.Printf("STORAGE_BUCKET not set; image uploads disabled")
	}

	srv := server.New(nil, server.Options{
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		Uploader:          uploader,
		GitSHA:            gitSHA,
		BuildTime:         buildTime,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		cfg, err := config.Load()
		if err != nil {
			log.Printf("config load error: %v", err)
			return
		}
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		srv.SetDB(conn)
		if err := conn.AutoMigrate(
			&model.Item{},
			&model.ItemImage{},
			&model.Favorite{},
			&model.Conversation{},
			&model.Message{},
			&model.ConversationRead{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
