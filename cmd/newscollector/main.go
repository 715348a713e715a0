package main

import (
	"newscollector/cmd/handlers"
	"newscollector/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
