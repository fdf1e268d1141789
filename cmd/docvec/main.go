// Command docvec is the CLI front-end for the docvec document indexing and
// hybrid retrieval library: it wires pkg/retrieval's Service onto a set of
// cobra subcommands for indexing, searching, and maintaining a store.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/docvec/cmd/docvec/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
