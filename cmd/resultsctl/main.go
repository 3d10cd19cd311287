// Command resultsctl is the operator CLI of the results service: it resolves grade bands,
// inspects and warms mark distributions, and applies result lock transitions without going
// through the HTTP API.
package main

import (
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
