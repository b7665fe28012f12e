package main

import (
	"fmt"
	"os"

	"github.com/heimgewebe/lenskit/internal/lenskit/commands"
	"github.com/heimgewebe/lenskit/pkg/output"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := commands.RootCmd()
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	if err := rootCmd.Execute(); err != nil {
		f := output.New(commands.GlobalJSONOutput, commands.GlobalMinOutput, os.Stdout)
		os.Exit(f.PrintError(err))
	}
}
