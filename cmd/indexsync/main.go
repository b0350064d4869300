// Command indexsync keeps a relational store and a search index in sync.
package main

import (
	"os"

	"github.com/kailas-cloud/indexsync/cmd/indexsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
