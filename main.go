package main

import (
	cmd "github.com/vitrinhq/vitrin/cmd/vitrin"
	"github.com/vitrinhq/vitrin/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting vitrin")
	cmd.Execute()
}
