// Command releasebot runs the video release bot.
package main

import (
	"log"

	"github.com/m3rciful/releasebot/app"
	"github.com/m3rciful/releasebot/core/cmd"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
