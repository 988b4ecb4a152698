package main

import (
	"os"

	"github.com/tinovyatkin/twlint/cmd/twlint/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
