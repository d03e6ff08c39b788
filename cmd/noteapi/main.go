package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/notewave/notewave/internal/database"
	notehandler "github.com/notewave/notewave/internal/note/handler"
	noterepo "github.com/notewave/notewave/internal/note/repository"
	notesvc "github.com/notewave/notewave/internal/note/service"
)

// noteapi serves just the notes REST surface, without the relay or auth.
// Useful for integration tests and for running the store as its own service.
func main() {
	port := os.Getenv("NOTE_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	var repo noterepo.Repository
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		client, err := database.ConnectMongo(context.Background(), uri, 10*time.Second)
		if err != nil {
			log.Printf("warning: cannot connect to MongoDB (%v), using memory-backed repo", err)
			repo = noterepo.NewMemoryRepo()
		} else {
			col := client.Database(os.Getenv("MONGODB_DATABASE")).Collection("notes")
			repo = noterepo.NewMongoRepo(col)
		}
	} else {
		repo = noterepo.NewMemoryRepo()
	}

	notehandler.RegisterNoteRoutes(r, notesvc.New(repo, nil))

	log.Printf("noteapi listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
