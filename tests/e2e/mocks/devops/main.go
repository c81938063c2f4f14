// Command devops serves a fake Azure DevOps collection for manual testing:
//
//	go run ./tests/e2e/mocks/devops -state state.json
//	wi source add mock --instance 127.0.0.1 --port <port> --scheme http
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattsolo1/grove-workitems/internal/devopsfake"
)

func main() {
	statePath := flag.String("state", os.Getenv("WI_MOCK_STATE"), "JSON state file with projects and work items")
	flag.Parse()

	srv := devopsfake.New()
	defer srv.Close()

	if *statePath != "" {
		f, err := os.Open(*statePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mock devops: %v\n", err)
			os.Exit(1)
		}
		err = srv.LoadState(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "mock devops: %v\n", err)
			os.Exit(1)
		}
	}

	src := srv.Source()
	fmt.Printf("serving %s (instance %s, port %d, collection %s)\n", src.Name(), src.Instance, src.Port, src.Collection)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
