// Command vaultindex scans markdown vaults into a metadata store and serves
// lexical and similarity search over them from the command line, HTTP and MCP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
