package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/example/aws-credentials-switcher/internal/cli"
)

var exitFunc = os.Exit

func main() {
	if code := run(os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		exitFunc(code)
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	root := cli.NewRootCommand(afero.NewOsFs(), cli.NewPromptUI(), stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cli.ExitCode(err)
	}
	return 0
}
