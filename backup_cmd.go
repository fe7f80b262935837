package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mahipat62/khata-book/internal/backup"
	"github.com/mahipat62/khata-book/internal/schema"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore book data",
	}

	cmd.AddCommand(newBackupSaveCmd())
	cmd.AddCommand(newBackupLoadCmd())
	cmd.AddCommand(newBackupExportCmd())
	cmd.AddCommand(newBackupImportCmd())
	cmd.AddCommand(newBackupCandidatesCmd())
	cmd.AddCommand(newBackupImportDocCmd())
	cmd.AddCommand(newBackupAutoCmd())

	return cmd
}

// backupBook is one book's data inside the backup payload.
type backupBook struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Schema  schema.Schema       `json:"schema"`
	Records []map[string]string `json:"records"`
}

// collectPayload reads every owned book's records into the backup payload.
// Shared and linked books are excluded: their owners back them up.
func collectPayload(ctx context.Context, a *app) ([]backupBook, error) {
	books, err := a.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	var payload []backupBook

	for _, b := range books {
		if !b.IsOwner {
			continue
		}

		records, err := a.store.List(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("reading book %q: %w", b.Name, err)
		}

		entry := backupBook{
			ID:      b.ID,
			Name:    b.Name,
			Schema:  a.store.Schema(b.ID),
			Records: make([]map[string]string, 0, len(records)),
		}

		for _, r := range records {
			entry.Records = append(entry.Records, r.Fields)
		}

		payload = append(payload, entry)
	}

	return payload, nil
}

// withApp wires the stack, checks authentication, and runs fn. Backup
// subcommands need more than the record store, so withStore does not fit.
func withApp(fn func(context.Context, *app) error) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireAuth(); err != nil {
		return err
	}

	return fn(ctx, a)
}

func newBackupSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save all owned books to the remote backup file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				payload, err := collectPayload(ctx, a)
				if err != nil {
					return err
				}

				fileID, err := a.engine.Save(ctx, payload)
				if err != nil {
					return err
				}

				statusf("Backup saved (%d books).\n", len(payload))
				fmt.Println(fileID)

				return nil
			})
		},
	}
}

func newBackupLoadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Download the remote backup",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				env, err := a.engine.Load(ctx)
				if err != nil {
					return err
				}

				return writeEnvelope(env, output)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write payload to a file instead of stdout")

	return cmd
}

func newBackupExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export all owned books to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				payload, err := collectPayload(ctx, a)
				if err != nil {
					return err
				}

				content, err := backup.Export(a.cfg.App.Name, payload, time.Now())
				if err != nil {
					return err
				}

				if err := os.WriteFile(args[0], content, 0o600); err != nil {
					return fmt.Errorf("writing %s: %w", args[0], err)
				}

				statusf("Exported %s (%d books).\n", formatSize(int64(len(content))), len(payload))

				return nil
			})
		},
	}
}

func newBackupImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Inspect a local backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			env, err := backup.Import(raw)
			if err != nil {
				return err
			}

			var books []backupBook
			if err := env.Decode(&books); err != nil {
				return err
			}

			fmt.Printf("Version:  %s\n", env.Version)
			fmt.Printf("App:      %s\n", env.AppName)
			fmt.Printf("Exported: %s\n", env.ExportedAt)
			fmt.Printf("Books:    %d\n", len(books))

			for _, b := range books {
				fmt.Printf("  %s (%d records)\n", b.Name, len(b.Records))
			}

			return nil
		},
	}
}

func newBackupCandidatesCmd() *cobra.Command {
	var includeShared bool

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List documents usable as import sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				candidates, err := backup.ListCandidates(ctx, a.client, includeShared)
				if err != nil {
					return err
				}

				if flagJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")

					return enc.Encode(candidates)
				}

				if len(candidates) == 0 {
					statusf("No documents found.\n")

					return nil
				}

				rows := make([][]string, 0, len(candidates))
				for _, c := range candidates {
					rows = append(rows, []string{c.Name, string(c.Permission), c.SharedBy, c.ID})
				}

				printTable(os.Stdout, []string{"NAME", "ACCESS", "SHARED BY", "ID"}, rows)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&includeShared, "shared", false, "include documents shared with you")

	return cmd
}

func newBackupImportDocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-doc <document-id>",
		Short: "Read an arbitrary document's tabs as import data",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				result, err := backup.ImportDocument(ctx, a.client, a.resolver, args[0])
				if err != nil {
					return err
				}

				if flagJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")

					return enc.Encode(result)
				}

				access := "read-only"
				if result.Editable {
					access = "editable"
				}

				fmt.Printf("Access: %s\n", access)
				fmt.Println("Schema:")

				for _, col := range result.Schema {
					fmt.Printf("  %s (%s)\n", col.Name, col.Type)
				}

				for _, tab := range result.Tabs {
					fmt.Printf("%s: %d rows\n", tab.Title, len(tab.Rows))
				}

				return nil
			})
		},
	}
}

func newBackupAutoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Manage scheduled backups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the scheduled backup settings",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app) error {
				settings, err := a.scheduler.Load()
				if err != nil {
					return err
				}

				if !settings.Enabled {
					fmt.Println("Scheduled backups: disabled")

					return nil
				}

				fmt.Printf("Scheduled backups: %s\n", settings.Frequency)
				fmt.Printf("Last run: %s\n", formatTime(settings.LastRun))

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable <daily|weekly|monthly>",
		Short: "Enable scheduled backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			freq, err := backup.ParseFrequency(args[0])
			if err != nil {
				return err
			}

			return withApp(func(_ context.Context, a *app) error {
				settings, err := a.scheduler.Load()
				if err != nil {
					return err
				}

				settings.Enabled = true
				settings.Frequency = freq

				if err := a.scheduler.Save(settings); err != nil {
					return err
				}

				statusf("Scheduled backups enabled (%s).\n", freq)

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable scheduled backups",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app) error {
				settings, err := a.scheduler.Load()
				if err != nil {
					return err
				}

				settings.Enabled = false

				if err := a.scheduler.Save(settings); err != nil {
					return err
				}

				statusf("Scheduled backups disabled.\n")

				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the scheduled backup now if one is due",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				payload, err := collectPayload(ctx, a)
				if err != nil {
					return err
				}

				result, err := a.scheduler.RunIfDue(ctx, payload)
				if err != nil {
					return err
				}

				switch {
				case !result.Performed:
					statusf("No backup due.\n")
				case result.Err != nil:
					return fmt.Errorf("scheduled backup: %w", result.Err)
				default:
					statusf("Backup completed.\n")
				}

				return nil
			})
		},
	})

	return cmd
}

// writeEnvelope prints or saves the payload of a downloaded backup.
func writeEnvelope(env *backup.Envelope, output string) error {
	statusf("Version %s, exported %s by %s.\n", env.Version, env.ExportedAt, env.AppName)

	if output == "" {
		_, err := os.Stdout.Write(append([]byte(env.Data), '\n'))

		return err
	}

	if err := os.WriteFile(output, env.Data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	statusf("Payload written to %s.\n", output)

	return nil
}
