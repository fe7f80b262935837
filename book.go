package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mahipat62/khata-book/internal/schema"
	"github.com/mahipat62/khata-book/internal/store"
)

func newBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage ledger books",
	}

	cmd.AddCommand(newBookListCmd())
	cmd.AddCommand(newBookCreateCmd())
	cmd.AddCommand(newBookRenameCmd())
	cmd.AddCommand(newBookDuplicateCmd())
	cmd.AddCommand(newBookRemoveCmd())
	cmd.AddCommand(newBookLinkCmd())
	cmd.AddCommand(newBookUnlinkCmd())

	return cmd
}

func newBookListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all reachable books",
		RunE:  runBookList,
	}
}

func newBookCreateCmd() *cobra.Command {
	var columns string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new book",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBookCreate(args[0], columns)
		},
	}

	cmd.Flags().StringVar(&columns, "columns", "",
		"comma-separated column spec, e.g. 'Date:date,Amount:number' (default: ledger columns)")

	return cmd
}

func newBookRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <book-id> <new-name>",
		Short: "Rename a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.RenameBook(ctx, args[0], args[1]); err != nil {
					return err
				}

				statusf("Renamed.\n")

				return nil
			})
		},
	}
}

func newBookDuplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <book-id> [new-name]",
		Short: "Duplicate a book",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}

			return withStore(func(ctx context.Context, s *store.Store) error {
				id, err := s.DuplicateBook(ctx, args[0], name)
				if err != nil {
					return err
				}

				statusf("Duplicated.\n")
				fmt.Println(id)

				return nil
			})
		},
	}
}

func newBookRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Delete a book permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s *store.Store) error {
				if err := s.RemoveBook(ctx, args[0]); err != nil {
					return err
				}

				statusf("Removed.\n")

				return nil
			})
		},
	}
}

func newBookLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <book-id>",
		Short: "Link an external book so it appears in listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(_ context.Context, s *store.Store) error {
				if err := s.Link(args[0]); err != nil {
					return err
				}

				statusf("Linked.\n")

				return nil
			})
		},
	}
}

func newBookUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <book-id>",
		Short: "Unlink a previously linked book",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withStore(func(_ context.Context, s *store.Store) error {
				if err := s.Unlink(args[0]); err != nil {
					return err
				}

				statusf("Unlinked.\n")

				return nil
			})
		},
	}
}

// withStore wires the stack, checks authentication, and runs fn against the
// record store. Shared by every book and record subcommand.
func withStore(fn func(context.Context, *store.Store) error) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireAuth(); err != nil {
		return err
	}

	return fn(ctx, a.store)
}

// bookOutput is the JSON schema for `book list --json`.
type bookOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Permission string `json:"permission"`
	SharedBy   string `json:"shared_by,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Linked     bool   `json:"linked"`
	URL        string `json:"url,omitempty"`
}

func runBookList(_ *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, s *store.Store) error {
		books, err := s.ListBooks(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			out := make([]bookOutput, 0, len(books))
			for _, b := range books {
				o := bookOutput{
					ID:         b.ID,
					Name:       b.Name,
					Permission: string(b.Permission),
					SharedBy:   b.SharedBy,
					Linked:     b.Linked,
					URL:        b.URL,
				}
				if !b.ModifiedAt.IsZero() {
					o.ModifiedAt = b.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z")
				}

				out = append(out, o)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		}

		if len(books) == 0 {
			statusf("No books found.\n")

			return nil
		}

		rows := make([][]string, 0, len(books))
		for _, b := range books {
			name := b.Name
			if b.Linked {
				name += " *"
			}

			rows = append(rows, []string{
				name,
				string(b.Permission),
				formatTime(b.ModifiedAt),
				b.SharedBy,
				b.ID,
			})
		}

		printTable(os.Stdout, []string{"NAME", "ACCESS", "MODIFIED", "SHARED BY", "ID"}, rows)

		return nil
	})
}

func runBookCreate(name, columns string) error {
	cols, err := parseColumnSpec(columns)
	if err != nil {
		return err
	}

	return withStore(func(ctx context.Context, s *store.Store) error {
		id, err := s.CreateBook(ctx, name, cols)
		if err != nil {
			return err
		}

		statusf("Created.\n")
		fmt.Println(id)

		return nil
	})
}

// parseColumnSpec parses "Name:type,Name:type" into a schema. An empty spec
// returns nil so the store falls back to the default ledger columns. Type
// may be omitted ("Name") and defaults to text.
func parseColumnSpec(spec string) (schema.Schema, error) {
	if spec == "" {
		return nil, nil
	}

	parts := strings.Split(spec, ",")
	cols := make(schema.Schema, 0, len(parts))

	for _, part := range parts {
		name, typ, _ := strings.Cut(strings.TrimSpace(part), ":")
		if name == "" {
			return nil, fmt.Errorf("empty column name in spec %q", spec)
		}

		if typ == "" {
			typ = schema.TypeText
		}

		switch typ {
		case schema.TypeText, schema.TypeNumber, schema.TypeDate, schema.TypeBoolean, schema.TypeSelect:
		default:
			return nil, fmt.Errorf("unknown column type %q (want text, number, date, boolean, or select)", typ)
		}

		cols = append(cols, schema.Column{Name: name, Type: typ})
	}

	return cols, nil
}
