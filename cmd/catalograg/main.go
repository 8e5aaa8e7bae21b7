// Command catalograg indexes a MongoDB product catalogue into a vector store
// and serves grounded product answers over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/catalograg-go/cmd/catalograg/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
