package main

import (
	"github.com/devops-ftn-2024/accommodations/startup"
	"github.com/devops-ftn-2024/accommodations/startup/config"
)

func main() {
	cfg := config.NewConfig()
	server := startup.NewServer(cfg)
	server.Start()
}
