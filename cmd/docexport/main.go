package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docexport/cmd/docexport/commands"
	derrors "git.home.luguber.info/inful/docexport/internal/errors"
	"git.home.luguber.info/inful/docexport/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docexport"),
		kong.Description("Derive Markdown downloads, page metadata and a search index from a rendered documentation site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{}, cli)
	if err == nil {
		return
	}

	adapter := derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	adapter.LogError(err)
	fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	os.Exit(adapter.ExitCodeFor(err))
}
