// Command devtoken mints a bearer token for local testing against a server
// started with the same JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mmynk/splitsettle/internal/auth"
	"github.com/mmynk/splitsettle/internal/config"
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/pkg/logging"
)

func main() {
	var (
		userID = flag.String("user", "", "user id (required)")
		name   = flag.String("name", "", "display name")
		email  = flag.String("email", "", "email address")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, *ttl).Generate(&models.User{ID: *userID, Name: *name, Email: *email})
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(2)
	}
	fmt.Println(token)
}
