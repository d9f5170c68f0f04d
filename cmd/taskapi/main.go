package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Path to a YAML config file." short:"c" type:"path" env:"TASKAPI_CONFIG"`
}

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the task API server."`
	Migrate MigrateCmd `cmd:"" help:"Apply the database schema and exit."`
	Version VersionCmd `cmd:"" help:"Print version information."`
	Tasks   TasksCmd   `cmd:"" help:"Manage tasks on a running server."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("taskapi"),
		kong.Description("Task management REST API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
