package main

import (
	"log"

	"github.com/MrSnakeDoc/taust/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ taust failed to start: %v", err)
	}
}
