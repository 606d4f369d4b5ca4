// Command httpbin serves pkg/httpbin on $PORT (8080 by default) until it
// receives SIGINT or SIGTERM.
package main

import (
	"fmt"
	"os"

	"github.com/luizaranda/curling/pkg/app"
	"github.com/luizaranda/curling/pkg/httpbin"
	"github.com/luizaranda/curling/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "httpbin:", err)
		os.Exit(1)
	}
}

func run() error {
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return err
	}

	a, err := app.NewWebApplication(httpbin.New(),
		app.WithServiceName("httpbin"),
		app.WithLogLevel(level),
		app.WithEnableProfiling(),
	)
	if err != nil {
		return err
	}

	return a.Run()
}
