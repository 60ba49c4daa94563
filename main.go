// Command demo-books serves a books catalogue over a JSON REST API.
package main

import (
	"log"
)

// Build metadata injected with -ldflags "-X main.GitCommit=...".
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("books api failed to initialize: ", err)
	}
	if err = app.Run(); err != nil {
		log.Fatal("books api exited. check logs for more details: ", err)
	}
}
