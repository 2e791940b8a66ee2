package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/joeyportfolio/portfolio/types"
	"github.com/joeyportfolio/portfolio/web"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printFeedback(w io.Writer, fb types.Feedback) {
	fmt.Fprintf(w, "ID:       %s\n", fb.ID)
	fmt.Fprintf(w, "Name:     %s\n", fb.Name)
	fmt.Fprintf(w, "Rating:   %s\n", web.Stars(fb.Rating))
	fmt.Fprintf(w, "Created:  %s\n", web.FormatDate(fb.CreatedAt))
	fmt.Fprintf(w, "Message:  %s\n", fb.Message)
}

func printFeedbackTable(w io.Writer, rows []types.Feedback) {
	fmt.Fprintln(w, web.CountHeader(rows))
	if len(rows) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tNAME\tRATING\tMESSAGE")
	for _, fb := range rows {
		msg := strings.ReplaceAll(fb.Message, "\n", " ")
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", web.FormatDate(fb.CreatedAt), fb.Name, web.Stars(fb.Rating), msg)
	}
	tw.Flush()
}
