package main

import (
	"carbonlens/cmd/handlers"
	"carbonlens/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
