package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/akeren/submission-history/pkg/client"
)

// Covers the server's maximum processing delay with room to spare.
const submitTimeout = 30 * time.Second

type submissionAPI interface {
	Submit(ctx context.Context, req client.SubmitRequest) (*client.SubmitResult, error)
	ListHistory(ctx context.Context) ([]client.HistoryEntry, error)
}

func runSubmit(api submissionAPI, date, firstName, lastName string) int {
	return submit(api, os.Stdout, os.Stderr, date, firstName, lastName)
}

func runHistory(api submissionAPI) int {
	return history(api, os.Stdout, os.Stderr)
}

func submit(api submissionAPI, stdout, stderr io.Writer, date, firstName, lastName string) int {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	result, err := api.Submit(ctx, client.SubmitRequest{Date: date, FirstName: firstName, LastName: lastName})
	if err != nil {
		fmt.Fprintf(stderr, "submit failed: %v\n", err)
		return 1
	}

	if !result.Success {
		fields := make([]string, 0, len(result.Errors))
		for field := range result.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			for _, msg := range result.Errors[field] {
				fmt.Fprintf(stderr, "%s: %s\n", field, msg)
			}
		}
		return 2
	}

	for _, item := range result.Data {
		fmt.Fprintf(stdout, "%s\t%s\n", item.Date, item.Name)
	}
	return 0
}

func history(api submissionAPI, stdout, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := api.ListHistory(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "history failed: %v\n", err)
		return 1
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFIRST NAME\tLAST NAME\tCOUNT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.Date, e.FirstName, e.LastName, e.Count)
	}
	_ = w.Flush()
	return 0
}
