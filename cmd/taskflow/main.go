package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-taskflow/taskflow/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "taskflow",
		Usage: "Inspect persisted task results",
		Commands: []*cli.Command{
			listCommand(),
			showCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List persisted tasks, most recent first",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Value:   "results",
				Usage:   "Result directory to read",
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Only show tasks of this exact type",
			},
		},

		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	manager := loadManager(c.String("results"))
	if err := manager.LoadFromDisk(); err != nil {
		return cli.Exit(fmt.Sprintf("load results: %v", err), 1)
	}

	summaries := manager.ListTasks(c.String("type"))
	if len(summaries) == 0 {
		fmt.Println("no tasks found")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s  %-8s  %-20s  %s\n",
			s.CreatedAt.Format(time.RFC3339), s.Status, s.TaskType, s.TaskID)
	}
	return nil
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one task's result record, with its logs when available",
		ArgsUsage: "<task-id>",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Value:   "results",
				Usage:   "Result directory to read",
			},
			&cli.StringFlag{
				Name:    "logs",
				Aliases: []string{"l"},
				Usage:   "Log directory holding <task-id>.log files",
			},
		},

		Action: showAction,
	}
}

func showAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("task id required", 1)
	}

	manager := loadManager(c.String("results"))
	if err := manager.LoadFromDisk(); err != nil {
		return cli.Exit(fmt.Sprintf("load results: %v", err), 1)
	}

	status, err := manager.GetTaskStatus(id, c.String("logs"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("get status: %v", err), 1)
	}

	fmt.Println(string(status))
	return nil
}

// loadManager builds a read-only manager over the result directory. The
// CLI never executes anything, so the pool stays unstarted.
func loadManager(resultDir string) *core.TaskManager {
	return core.NewTaskManager(nil, core.ManagerConfig{
		ResultDir: resultDir,
		Logger:    core.NewNoOpLogger(),
	})
}
