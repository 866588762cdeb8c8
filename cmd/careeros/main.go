package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careeros/careeros/internal/auth"
	"github.com/careeros/careeros/internal/config"
	"github.com/careeros/careeros/internal/cookie"
	"github.com/careeros/careeros/internal/crypto"
	"github.com/careeros/careeros/internal/googleauth"
	"github.com/careeros/careeros/internal/log"
	"github.com/careeros/careeros/internal/server"
	"github.com/careeros/careeros/internal/storage"
)

var BuildVersion = "dev"

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.LogError("Configuration error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.LogError("Invalid encryption key: %v", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.Storage {
	case config.StorageFirestore:
		firestoreStore, err := storage.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreDatabase, cfg.FirestoreCollection)
		if err != nil {
			log.LogError("Failed to create firestore store: %v", err)
			os.Exit(1)
		}
		defer firestoreStore.Close()
		store = firestoreStore
	default:
		store = storage.NewMemoryStore()
	}

	authenticator := googleauth.NewAuthenticator(
		cfg.GoogleClientID,
		string(cfg.GoogleClientSecret),
		cfg.GoogleRedirectURI,
	)
	manager := auth.NewManager(store, encryptor, authenticator)
	cookies := cookie.NewJar([]byte(cfg.CookieSecret))

	handler := server.NewHandler(
		server.NewAuthHandlers(authenticator, manager, store, cookies, cfg.FrontendURL),
		server.NewGoogleHandlers(manager, cookies, ""),
		cfg.FrontendURL,
	)

	httpServer := server.NewHTTPServer(handler, *addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	log.LogInfoWithFields("main", "Career OS backend started", map[string]any{
		"version": BuildVersion,
		"addr":    *addr,
		"storage": string(cfg.Storage),
	})

	select {
	case err := <-errCh:
		if err != nil {
			log.LogError("Server error: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			log.LogError("Shutdown error: %v", err)
			os.Exit(1)
		}
	}
}
