package main

import (
	"os"

	"github.com/joho/godotenv"

	"biodivscope-backend-go/internal/config"
	"biodivscope-backend-go/internal/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLogs := logging.Setup(cfg)
	err := rootCommand(cfg, logger).Execute()
	closeLogs()
	if err != nil {
		os.Exit(1)
	}
}
