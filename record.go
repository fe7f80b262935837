package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mahipat62/khata-book/internal/store"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage records in a book",
	}

	cmd.AddCommand(newRecordListCmd())
	cmd.AddCommand(newRecordAddCmd())
	cmd.AddCommand(newRecordUpdateCmd())
	cmd.AddCommand(newRecordDeleteCmd())

	return cmd
}

func newRecordListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <book-id>",
		Short: "List the records of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRecordList(args[0])
		},
	}
}

func newRecordAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <book-id> <field=value>...",
		Short: "Append a record to a book",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}

			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.Add(ctx, args[0], fields); err != nil {
					return err
				}

				statusf("Added.\n")

				return nil
			})
		},
	}
}

func newRecordUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <book-id> <row> <field=value>...",
		Short: "Update the record at a row",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}

			fields, err := parseFields(args[2:])
			if err != nil {
				return err
			}

			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.Update(ctx, args[0], row, fields); err != nil {
					return err
				}

				statusf("Updated.\n")

				return nil
			})
		},
	}
}

func newRecordDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id> <row>",
		Short: "Delete the record at a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}

			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.Delete(ctx, args[0], row); err != nil {
					return err
				}

				statusf("Deleted.\n")

				return nil
			})
		},
	}
}

// parseRow parses a 1-based sheet row number. Row 1 is the header, so data
// rows start at 2.
func parseRow(s string) (int64, error) {
	row, err := strconv.ParseInt(s, 10, 64)
	if err != nil || row < 2 {
		return 0, fmt.Errorf("invalid row %q: want a number of 2 or more", s)
	}

	return row, nil
}

// parseFields parses field=value arguments into a field map.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: want field=value", arg)
		}

		fields[name] = value
	}

	return fields, nil
}

// recordOutput is the JSON schema for `record list --json`.
type recordOutput struct {
	Row    int64             `json:"row"`
	Fields map[string]string `json:"fields"`
}

func runRecordList(bookID string) error {
	return withStore(func(ctx context.Context, s *store.Store) error {
		records, err := s.List(ctx, bookID)
		if err != nil {
			state, detail := s.Sync(bookID)
			if state == store.SyncError && detail != "" {
				return fmt.Errorf("loading records: %s", detail)
			}

			return err
		}

		if flagJSON {
			out := make([]recordOutput, 0, len(records))
			for _, r := range records {
				out = append(out, recordOutput{Row: r.Position, Fields: r.Fields})
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		}

		if len(records) == 0 {
			statusf("No records.\n")

			return nil
		}

		sch := s.Schema(bookID)

		headers := []string{"ROW"}
		for _, col := range sch {
			headers = append(headers, strings.ToUpper(col.Name))
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			row := []string{strconv.FormatInt(r.Position, 10)}
			for _, col := range sch {
				row = append(row, r.Fields[col.Name])
			}

			rows = append(rows, row)
		}

		printTable(os.Stdout, headers, rows)

		state, _ := s.Sync(bookID)
		statusf("%s\n", style(ansiDim, fmt.Sprintf("%d records, %s", len(records), state)))

		return nil
	})
}
