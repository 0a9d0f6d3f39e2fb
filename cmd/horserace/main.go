package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config  string `short:"c" help:"Path to HCL config file" default:"horserace.hcl"`
	Debug   bool   `help:"Enable debug logging"`
	NoColor bool   `name:"no-color" help:"Disable colour output" env:"NO_COLOR"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Print version and exit"`

	Play     PlayCmd     `cmd:"" default:"1" help:"Run tournaments in the terminal UI"`
	Simulate SimulateCmd `cmd:"" help:"Run tournaments without a UI and print statistics"`
	Serve    ServeCmd    `cmd:"" help:"Run tournaments continuously for websocket spectators"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("horserace"),
		kong.Description("A six-round horse racing tournament for the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
