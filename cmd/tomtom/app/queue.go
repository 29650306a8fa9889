// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/queue"
	"github.com/macq/tomtom-api/pkg/traffic"
	"github.com/macq/tomtom-api/pkg/util/log"
)

var queueCmd = &cobra.Command{
	Use:   "queue [command]",
	Short: "Manage the local job queue",
}

var (
	addName     string
	addType     string
	addPriority int64

	addCmd = &cobra.Command{
		Use:   "add <payload-file>",
		Short: "Queue a new job, reading its payload from a file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportType, err := traffic.ParseReportType(addType)
			if err != nil {
				return err
			}
			payload, err := readPayload(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			item, err := queue.Add(cmd.Context(), store, addName, reportType, payload, addPriority)
			if err != nil {
				return err
			}
			fmt.Println(item.UID)
			return nil
		},
	}
)

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

var (
	listUIDs       []string
	listNames      []string
	listPriorities []string
	listStatuses   []string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List queued jobs, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.ItemStatus, 0, len(listStatuses))
			for _, s := range listStatuses {
				status, err := queue.ParseItemStatus(s)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			items, err := store.Filter(queue.FilterOptions{
				UIDs:       listUIDs,
				Names:      listNames,
				Priorities: listPriorities,
				Statuses:   statuses,
			})
			if err != nil {
				return err
			}
			queue.RenderItems(os.Stdout, items)
			return nil
		},
	}
)

var (
	nextCount int

	nextCmd = &cobra.Command{
		Use:   "next",
		Short: "Show the jobs the daemon would submit next",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			queue.RenderItems(os.Stdout, store.Next(nextCount))
			return nil
		},
	}
)

var (
	updateName        string
	updatePriority    int64
	updateCancel      bool
	updateResume      bool
	updatePayloadFile string

	updateCmd = &cobra.Command{
		Use:   "update <uid>",
		Short: "Edit a waiting or cancelled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if updateCancel && updateResume {
				return fmt.Errorf("--cancel and --resume are mutually exclusive")
			}

			opts := queue.UpdateOptions{}
			if cmd.Flags().Changed("name") {
				opts.Name = &updateName
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &updatePriority
			}
			if updateCancel || updateResume {
				opts.Cancel = &updateCancel
			}
			if updatePayloadFile != "" {
				payload, err := readPayload(updatePayloadFile)
				if err != nil {
					return err
				}
				opts.Payload = payload
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			item, err := queue.Update(cmd.Context(), store, args[0], opts)
			if err != nil {
				return err
			}
			queue.RenderItems(os.Stdout, []*queue.Item{item})
			return nil
		},
	}
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize the queue without modifying it",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		queue.RenderDescription(os.Stdout, store.Describe())
		return nil
	},
}

var (
	purgeYes bool

	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Delete the queue table and every payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !purgeYes {
				return fmt.Errorf("purge deletes the whole queue; pass --yes to confirm")
			}
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Purge(); err != nil {
				return err
			}
			if err := os.Remove(cfg.DaemonLogFile()); err != nil && !os.IsNotExist(err) {
				return err
			}
			log.Info("Queue purged")
			return nil
		},
	}
)

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "name of the job")
	addCmd.Flags().StringVar(&addType, "type", string(traffic.RouteAnalysis), "report type (routeanalysis, areaanalysis or trafficdensity)")
	addCmd.Flags().Int64Var(&addPriority, "priority", 0, "submission priority, higher first")
	addCmd.MarkFlagRequired("name") //nolint:errcheck

	listCmd.Flags().StringSliceVar(&listUIDs, "uid", nil, "filter on uid, repeatable")
	listCmd.Flags().StringSliceVar(&listNames, "name", nil, "filter on a name fragment, repeatable")
	listCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "filter on priority (e.g. 5, '>=3'), repeatable")
	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "filter on status, repeatable")

	nextCmd.Flags().IntVarP(&nextCount, "count", "c", queue.DefaultConcurrentJobs, "number of jobs to show, 0 for all")

	updateCmd.Flags().StringVar(&updateName, "name", "", "new name")
	updateCmd.Flags().Int64Var(&updatePriority, "priority", 0, "new priority")
	updateCmd.Flags().BoolVar(&updateCancel, "cancel", false, "cancel the job")
	updateCmd.Flags().BoolVar(&updateResume, "resume", false, "put a cancelled job back in the queue")
	updateCmd.Flags().StringVar(&updatePayloadFile, "payload-file", "", "replace the payload with the content of this file (- for stdin)")

	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm the purge")

	queueCmd.AddCommand(addCmd, listCmd, nextCmd, updateCmd, describeCmd, purgeCmd)
	TomtomCmd.AddCommand(queueCmd)
}
