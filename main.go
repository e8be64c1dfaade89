package main

import (
	"fmt"
	"os"

	"fjacquet/cfdi-sentinel/cmd/batch"
	"fjacquet/cfdi-sentinel/cmd/denylist"
	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/cmd/serve"
	"fjacquet/cfdi-sentinel/cmd/validate"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(validate.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(denylist.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
