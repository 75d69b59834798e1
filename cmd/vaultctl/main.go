// Command vaultctl manages identities and encrypted files in a filevault.
package main

import (
	"fmt"
	"os"

	// Register storage backends
	_ "github.com/infodancer/filevault/keydir"
	_ "github.com/infodancer/filevault/maildir"
	_ "github.com/infodancer/filevault/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
