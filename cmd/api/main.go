package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"basera/internal/adapter/api"
	"basera/internal/adapter/api/handler"
	apimiddleware "basera/internal/adapter/api/middleware"
	"basera/internal/adapter/api/router"
	"basera/internal/adapter/repository"
	"basera/internal/infrastructure/auth"
	"basera/internal/infrastructure/firebase"
	"basera/internal/infrastructure/storage"
	"basera/internal/infrastructure/websocket"
	"basera/internal/usecase"
	"basera/pkg/config"
)

// tokenVerifier is satisfied by both the Firebase client and the dev
// verifier; the HTTP middleware and the websocket handshake share one.
type tokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption

	// Service account from environment (production) or file (local).
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	devVerifier := auth.NewDevVerifier(cfg.DevTokenSecret)

	var verifier tokenVerifier
	if cfg.Environment == "development" {
		log.Printf("Using development token verifier")
		verifier = devVerifier
	} else {
		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewAuthClient(authClient)
	}

	convRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)

	hub := websocket.NewHub()
	hub.Start(ctx)

	chatUseCase := usecase.NewChatUseCase(convRepo, listingRepo, hub)
	hub.AttachChatService(chatUseCase)

	negotiationUseCase := usecase.NewNegotiationUseCase(convRepo, listingRepo, chatUseCase)
	listingUseCase := usecase.NewListingUseCase(listingRepo, cfg.ListingTTLDays)
	listingUseCase.StartExpirySweep(ctx, time.Hour)

	e := echo.New()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)

	chatHandler := handler.NewChatHandler(chatUseCase, negotiationUseCase)
	listingHandler := handler.NewListingHandler(listingUseCase)
	wsHandler := handler.NewWebSocketHandler(hub, verifier)

	router.SetupHealthRouter(e)
	router.SetupChatRouter(e, chatHandler, authMiddleware)
	router.SetupListingRouter(e, listingHandler, authMiddleware)
	router.SetupWebSocketRouter(e, wsHandler)
	router.SetupDevRouter(e, handler.NewDevTokenHandler(devVerifier), cfg.Environment)

	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"))
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		defer storageClient.Close()

		router.SetupFileRouter(e, handler.NewFileHandler(storageClient), authMiddleware)
	} else {
		log.Printf("STORAGE_BUCKET not set, file uploads disabled")
	}

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
