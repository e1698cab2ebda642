package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/secira/TargetCapital-sub000/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}
	cli.Run()
}
