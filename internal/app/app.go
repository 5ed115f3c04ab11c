package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nadavlev/hebscribe/internal/config"
	"github.com/nadavlev/hebscribe/internal/core/batch_engine"
	db "github.com/nadavlev/hebscribe/internal/core/database"
	"github.com/nadavlev/hebscribe/internal/core/llm"
	objectclient "github.com/nadavlev/hebscribe/internal/core/object-client"
	"github.com/nadavlev/hebscribe/internal/core/render"
	"github.com/nadavlev/hebscribe/internal/services"
)

type App struct {
	HistoryClient *db.HistoryClient
	ObjectClient  *objectclient.S3Client
	Recognizer    *llm.GeminiRecognizer
	Queue         *batch_engine.Service
	Server        *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	historyClient, err := db.NewHistoryClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("History store initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	recognizer, err := llm.NewGeminiRecognizer(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the recognizer, %w", err)
	}

	renderer := render.NewPdfcpuRenderer()
	history := services.NewHistory(appCtx, historyClient)

	queue := batch_engine.NewService(objClient, renderer, recognizer, history)
	server := NewServer(cfg, queue, objClient, history)

	return &App{
		HistoryClient: historyClient,
		ObjectClient:  objClient,
		Recognizer:    recognizer,
		Queue:         queue,
		Server:        server,
	}, nil
}

func (a *App) Close() {
	if a.Recognizer != nil {
		_ = a.Recognizer.Close()
	}
	if a.HistoryClient != nil {
		_ = a.HistoryClient.Close()
	}
}
