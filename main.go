package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"instaplan/cmd"
	"instaplan/config"

	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// Env files are loaded before flags read their environment variables
	config.LoadEnv()

	if err := cmd.RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
