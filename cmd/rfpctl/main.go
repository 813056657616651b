// Command rfpctl administers the RFP review service from a shell: schema
// migrations, uploads, workflow actions and status repair.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
