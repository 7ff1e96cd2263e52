// Command gldash drives the dashboard core headless: it renders the layer
// stack, legends and graphs of a run as JSON, or serves them over HTTP.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
