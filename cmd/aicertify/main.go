// Command aicertify runs the combined compliance pipeline against a contract
// file and a policy folder selector, printing the resulting verdict and
// report.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}
