package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logrus.Info("no .env file found, using process environment")
	}

	if err := server.Start(); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
