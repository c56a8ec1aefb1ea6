package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dailytasks/internal/models"
	"dailytasks/internal/taskstore"
)

func (a *app) newAddCmd() *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a task to the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				task, err := tasks.Add(cmd.Context(), strings.Join(args, " "), models.Priority(priority))
				if err != nil {
					return err
				}
				if task == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to add: task text is empty.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added task %d (%s).\n", task.ID, task.Priority)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedium), "priority: low, medium or high")

	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	var priority string

	cmd := &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Change the text and priority of a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				p := models.Priority(priority)
				if !cmd.Flags().Changed("priority") {
					if cur, ok := tasks.Get(id); ok {
						p = cur.Priority
					}
				}

				task, err := tasks.Edit(cmd.Context(), id, strings.Join(args[1:], " "), p)
				if err != nil {
					return err
				}
				if task == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change: task text is empty.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d.\n", task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedium), "new priority (default keeps the current one)")

	return cmd
}

func (a *app) newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between completed and pending",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				task, err := tasks.ToggleComplete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if task.Completed {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d marked as completed.\n", task.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %d marked as pending.\n", task.ID)
				}
				return nil
			})
		},
	}
}

func (a *app) newRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				task, ok := tasks.Get(id)
				if !ok {
					return fmt.Errorf("delete %d: %w", id, taskstore.ErrNotFound)
				}
				if !yes && !confirm(cmd, fmt.Sprintf("Delete task %d %q?", id, task.Text)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}

				removed, err := tasks.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("delete %d: %w", id, taskstore.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d.\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func (a *app) newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				if tasks.Stats().Completed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No completed tasks to clear.")
					return nil
				}
				if !yes && !confirm(cmd, "Clear all completed tasks?") {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}

				n, err := tasks.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed task(s).\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return err
			}

			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				renderList(cmd.OutOrStdout(), tasks.Filtered(f), time.Now())
				renderStats(cmd.OutOrStdout(), tasks.Stats())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(models.FilterAll), "all, pending, completed or high")

	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				renderStats(cmd.OutOrStdout(), tasks.Stats())
				return nil
			})
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				if output == "-" {
					return tasks.Export(cmd.OutOrStdout())
				}

				data, err := tasks.Serialize()
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, []byte(data), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s.\n", tasks.Stats().Total, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", taskstore.ExportFilename, "output file, or - for stdout")

	return cmd
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all tasks with the contents of a JSON export",
		Long:  "Replace all tasks with the contents of a JSON export. Use - to read from stdin. Unreadable saved tasks are replaced too.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				src = f
			}

			return a.withTasks(cmd.Context(), func(tasks *taskstore.TaskStore) error {
				if err := tasks.Import(cmd.Context(), src); err != nil {
					if errors.Is(err, taskstore.ErrImport) {
						return fmt.Errorf("error importing tasks, please check the file format: %w", err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s).\n", tasks.Stats().Total)
				return nil
			}, taskstore.WithDiscardCorrupt())
		},
	}
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)

	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
