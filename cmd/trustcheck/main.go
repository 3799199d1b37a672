// trustcheck looks up phone numbers, bank accounts and names against a
// trust record set and scores free-text notes.
package main

import (
	"os"

	"github.com/corey/trustcheck/cmd/trustcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
