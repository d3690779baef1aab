package main

import (
	"log"

	"github.com/api-sentinel/sentinel-gateway/internal/config"
	pkgconfig "github.com/api-sentinel/sentinel-gateway/pkg/config"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	// Create gateway with explicit config
	gateway := pkgconfig.NewGateway(cfg)

	// Start the server
	log.Println("Starting API Sentinel gateway...")
	if err := gateway.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
