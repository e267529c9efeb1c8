package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/apiclient"
	"clipforge/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the render queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatus string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *apiclient.Client, store *queue.Store) error {
				items, err := fetchItems(cmd.Context(), client, store, listStatus)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Run", "Schedule", "Status", "Clips", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by queue status")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(client *apiclient.Client, store *queue.Store) error {
				item, err := fetchItem(cmd.Context(), client, store, id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				printItemDetail(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(client *apiclient.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					if len(ids) == 0 {
						items, err := client.Queue(cmd.Context(), string(queue.StatusFailed))
						if err != nil {
							return err
						}
						for _, item := range items {
							ids = append(ids, item.ID)
						}
					}
					retried := 0
					for _, id := range ids {
						if err := client.Retry(cmd.Context(), id); err != nil {
							var apiErr *apiclient.APIError
							if errors.As(err, &apiErr) {
								fmt.Fprintf(out, "Item %d: %s\n", id, apiErr.Message)
								continue
							}
							return err
						}
						retried++
					}
					fmt.Fprintf(out, "Retried %d failed items\n", retried)
					return nil
				}

				updated, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Retried %d failed items\n", updated)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(client *apiclient.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()

				if client != nil {
					// The HTTP surface removes items one at a time, so clear
					// resolves the matching set first.
					status := ""
					switch {
					case clearCompleted:
						status = string(queue.StatusCompleted)
					case clearFailed:
						status = string(queue.StatusFailed)
					}
					items, err := client.Queue(cmd.Context(), status)
					if err != nil {
						return err
					}
					removed := 0
					for _, item := range items {
						if err := client.Remove(cmd.Context(), item.ID); err != nil {
							var apiErr *apiclient.APIError
							if errors.As(err, &apiErr) {
								fmt.Fprintf(out, "Item %d: %s\n", item.ID, apiErr.Message)
								continue
							}
							return err
						}
						removed++
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
					return nil
				}

				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = store.ClearCompleted(cmd.Context())
				case clearFailed:
					removed, err = store.ClearFailed(cmd.Context())
				default:
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID>",
		Short: "Remove one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(client *apiclient.Client, store *queue.Store) error {
				if client != nil {
					if err := client.Remove(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
					return nil
				}
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("item %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
				return nil
			})
		},
	}
}

func fetchItems(ctx context.Context, client *apiclient.Client, store *queue.Store, status string) ([]api.ItemResponse, error) {
	if client != nil {
		return client.Queue(ctx, status)
	}

	var statuses []queue.Status
	if strings.TrimSpace(status) != "" {
		parsed, ok := queue.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", status)
		}
		statuses = append(statuses, parsed)
	}
	items, err := store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	responses := make([]api.ItemResponse, len(items))
	for i, item := range items {
		responses[i] = api.ItemToResponse(item)
	}
	return responses, nil
}

func fetchItem(ctx context.Context, client *apiclient.Client, store *queue.Store, id int64) (*api.ItemResponse, error) {
	if client != nil {
		item, err := client.Item(ctx, id)
		if err != nil {
			var apiErr *apiclient.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
				return nil, nil
			}
			return nil, err
		}
		return &item, nil
	}

	item, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	resp := api.ItemToResponse(item)
	return &resp, nil
}

func buildQueueListRows(items []api.ItemResponse) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			shortRunID(item.RunID),
			item.Schedule,
			item.Status,
			strconv.Itoa(item.ClipCount),
			item.CreatedAt,
		})
	}
	return rows
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(stats[key])})
	}
	return rows
}

func printItemDetail(out io.Writer, item api.ItemResponse) {
	fmt.Fprintf(out, "ID:          %d\n", item.ID)
	fmt.Fprintf(out, "Run ID:      %s\n", item.RunID)
	if item.Schedule != "" {
		fmt.Fprintf(out, "Schedule:    %s\n", item.Schedule)
	}
	fmt.Fprintf(out, "Status:      %s\n", item.Status)
	if item.SourceDir != "" {
		fmt.Fprintf(out, "Source dir:  %s\n", item.SourceDir)
	}
	fmt.Fprintf(out, "Clips:       %d\n", item.ClipCount)
	if item.FinalPath != "" {
		fmt.Fprintf(out, "Output:      %s%s\n", item.FinalPath, fileSizeSuffix(item.FinalPath))
	}
	if item.PublishedTargets != "" {
		fmt.Fprintf(out, "Published:   %s\n", item.PublishedTargets)
	}
	if item.ProgressStage != "" {
		fmt.Fprintf(out, "Progress:    %s %.0f%%", item.ProgressStage, item.ProgressPercent)
		if item.ProgressMessage != "" {
			fmt.Fprintf(out, " (%s)", item.ProgressMessage)
		}
		fmt.Fprintln(out)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", item.ErrorMessage)
	}
	fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt)
	fmt.Fprintf(out, "Updated:     %s\n", item.UpdatedAt)
}

func fileSizeSuffix(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
}

func shortRunID(runID string) string {
	if len(runID) > 10 {
		return runID[:10]
	}
	return runID
}
