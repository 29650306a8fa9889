// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/macq/tomtom-api/pkg/traffic"
)

// The job commands talk to the remote service directly, bypassing the local
// queue. Handy to inspect or clean up jobs submitted elsewhere.
var jobCmd = &cobra.Command{
	Use:   "job [command]",
	Short: "Inspect and manage jobs on the remote service",
}

var (
	searchPageIndex int
	searchPerPage   int
	searchName      string
	searchTypes     []string
	searchStates    []string
	searchCreatedA  string
	searchCreatedB  string

	jobSearchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search jobs on the remote service",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := traffic.SearchFilters{
				Name:          searchName,
				CreatedAfter:  searchCreatedA,
				CreatedBefore: searchCreatedB,
			}
			if cmd.Flags().Changed("page") {
				filters.PageIndex = &searchPageIndex
			}
			if cmd.Flags().Changed("per-page") {
				filters.PerPage = &searchPerPage
			}
			for _, t := range searchTypes {
				reportType, err := traffic.ParseReportType(t)
				if err != nil {
					return err
				}
				filters.Types = append(filters.Types, reportType)
			}
			for _, s := range searchStates {
				state, err := traffic.ParseJobState(s)
				if err != nil {
					return err
				}
				filters.States = append(filters.States, state)
			}

			client, err := newClient(false)
			if err != nil {
				return err
			}
			response, err := client.Search(cmd.Context(), filters)
			if err != nil {
				return err
			}

			for i := range response.Content {
				fmt.Println(response.Content[i].DisplayInfo())
			}
			fmt.Printf("%d of %d job(s)\n", response.NumberOfElements, response.TotalElements)
			return nil
		},
	}
)

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the remote state of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		client, err := newClient(false)
		if err != nil {
			return err
		}
		status, err := client.Status(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Println(status.DisplayInfo())
		for _, u := range status.URLs {
			fmt.Println(u)
		}
		return nil
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Ask the remote service to stop a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		client, err := newClient(false)
		if err != nil {
			return err
		}
		if err := client.CancelJob(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Cancellation of job %d requested\n", id)
		return nil
	},
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a finished job report on the remote service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		client, err := newClient(false)
		if err != nil {
			return err
		}
		if err := client.DeleteJob(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Job %d deleted\n", id)
		return nil
	},
}

func init() {
	jobSearchCmd.Flags().IntVar(&searchPageIndex, "page", 0, "page index, starting at 0")
	jobSearchCmd.Flags().IntVar(&searchPerPage, "per-page", 0, "page size")
	jobSearchCmd.Flags().StringVar(&searchName, "name", "", "filter on the job name")
	jobSearchCmd.Flags().StringSliceVar(&searchTypes, "type", nil, "filter on report type, repeatable")
	jobSearchCmd.Flags().StringSliceVar(&searchStates, "state", nil, "filter on job state, repeatable")
	jobSearchCmd.Flags().StringVar(&searchCreatedA, "created-after", "", "jobs created after this date (YYYY-MM-DD)")
	jobSearchCmd.Flags().StringVar(&searchCreatedB, "created-before", "", "jobs created before this date (YYYY-MM-DD)")

	jobCmd.AddCommand(jobSearchCmd, jobStatusCmd, jobCancelCmd, jobDeleteCmd)
	TomtomCmd.AddCommand(jobCmd)
}
