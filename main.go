package main

import (
	"flag"
	"log"

	"fermata/cmd"
	"fermata/config"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to optional config file")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cmd.StartWebServer(cfg)
}
