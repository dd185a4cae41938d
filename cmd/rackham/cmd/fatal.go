package cmd

import (
	"fmt"
	"log"
	"os"
)

var (
	// globals used to patch over calls to os.Exit() during test

	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf

	// infoLogger reports on stderr, so stdout only carries the adjusted resources
	infoLogger = log.New(os.Stderr, "", 0)
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%s: %v", msg, err)
	}
}

func terminate(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
