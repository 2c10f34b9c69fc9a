package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagefactory/cmd/pagefactory/commands"
	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
	"git.home.luguber.info/inful/pagefactory/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("pagefactory"),
		kong.Description("Render pages from JSON manifests and templates."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
		kong.Bind(global),
	)

	err := parser.Run(cli)
	if err != nil {
		adapter := foundationerrors.NewCLIErrorAdapter(cli.Verbose, nil)
		os.Exit(adapter.Report(os.Stderr, err))
	}
}
