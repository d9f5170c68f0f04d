package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/broady/taskapi/internal/client"
	"github.com/broady/taskapi/internal/task"
)

type TasksCmd struct {
	Server  string        `help:"Base URL of the task API, including any base path." default:"http://localhost:8080" env:"TASKAPI_SERVER"`
	Timeout time.Duration `help:"Request timeout." default:"10s"`
	JSON    bool          `help:"Print raw JSON instead of a table." name:"json"`

	List   TasksListCmd   `cmd:"" help:"List tasks."`
	Get    TasksGetCmd    `cmd:"" help:"Show one task."`
	Add    TasksAddCmd    `cmd:"" help:"Create a task."`
	Update TasksUpdateCmd `cmd:"" help:"Replace a task's fields."`
	Rm     TasksRmCmd     `cmd:"" help:"Delete a task."`
	Toggle TasksToggleCmd `cmd:"" help:"Flip a task's completed flag."`
}

// stdout receives the output of the tasks subcommands.
var stdout io.Writer = os.Stdout

// taskCLI is bound for the tasks subcommands.
type taskCLI struct {
	client  *client.Client
	timeout time.Duration
	json    bool
	out     io.Writer
}

func (c *TasksCmd) AfterApply(kctx *kong.Context) error {
	kctx.Bind(&taskCLI{
		client:  client.New(c.Server),
		timeout: c.Timeout,
		json:    c.JSON,
		out:     stdout,
	})
	return nil
}

func (t *taskCLI) context() (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), t.timeout)
}

func (t *taskCLI) print(tasks ...task.DTO) error {
	if t.json {
		enc := json.NewEncoder(t.out)
		enc.SetIndent("", "  ")
		if len(tasks) == 1 {
			return enc.Encode(tasks[0])
		}
		return enc.Encode(tasks)
	}
	tw := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tDESCRIPTION")
	for _, d := range tasks {
		var id, desc string
		if d.ID != nil {
			id = strconv.FormatInt(*d.ID, 10)
		}
		if d.Description != nil {
			desc = *d.Description
		}
		done := " "
		if d.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", id, done, d.Title, desc)
	}
	return tw.Flush()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type TasksListCmd struct {
	Completed bool `help:"Only completed tasks." xor:"state"`
	Open      bool `help:"Only open tasks." xor:"state"`
}

func (c *TasksListCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()

	var filter *bool
	switch {
	case c.Completed:
		filter = &c.Completed
	case c.Open:
		f := false
		filter = &f
	}
	tasks, err := t.client.List(ctx, filter)
	if err != nil {
		return err
	}
	if t.json {
		enc := json.NewEncoder(t.out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}
	return t.print(tasks...)
}

type TasksGetCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *TasksGetCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()
	d, err := t.client.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	return t.print(d)
}

type TasksAddCmd struct {
	Title       string `arg:"" help:"Task title."`
	Description string `help:"Task description." short:"d"`
	Completed   bool   `help:"Create the task already completed."`
}

func (c *TasksAddCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()
	d, err := t.client.Create(ctx, task.DTO{
		Title:       c.Title,
		Description: optional(c.Description),
		Completed:   c.Completed,
	})
	if err != nil {
		return err
	}
	return t.print(d)
}

type TasksUpdateCmd struct {
	ID          int64  `arg:"" help:"Task id."`
	Title       string `help:"New title." required:""`
	Description string `help:"New description. Omit to clear it." short:"d"`
	Completed   bool   `help:"Mark the task completed."`
}

func (c *TasksUpdateCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()
	d, err := t.client.Update(ctx, c.ID, task.DTO{
		Title:       c.Title,
		Description: optional(c.Description),
		Completed:   c.Completed,
	})
	if err != nil {
		return err
	}
	return t.print(d)
}

type TasksRmCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *TasksRmCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()
	if err := t.client.Delete(ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "deleted task %d\n", c.ID)
	return nil
}

type TasksToggleCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *TasksToggleCmd) Run(t *taskCLI) error {
	ctx, cancel := t.context()
	defer cancel()
	d, err := t.client.Toggle(ctx, c.ID)
	if err != nil {
		return err
	}
	return t.print(d)
}
