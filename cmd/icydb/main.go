// Package main is a small demo CLI over the icydb public API: it
// registers one entity (Note) in a fresh in-process Db and exercises
// put/load/delete through cobra subcommands. It uses cobra the way the
// teacher's cmd/smf/main.go does: a root command, one subcommand per
// verb, a flag struct per subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"icydb"
	"icydb/internal/config"
	"icydb/internal/predicate"
	"icydb/internal/store"
)

// Note is the demo entity: a titled, pinnable scratch note.
type Note struct {
	ID     uint64 `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "icydb",
		Short: "Demo CLI over the icydb embedded document store",
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(putCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(deleteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSession builds a fresh Db with the Note entity registered and opens
// a session over it. The engine has no persistent substrate (spec's
// explicit non-goal), so every invocation of this demo starts empty;
// its purpose is to exercise the API end to end, not to be a real store.
func newSession() (*icydb.DbSession, error) {
	cfg := config.DefaultEngineConfig()
	db := icydb.NewDb(cfg, store.NewInProcessRegistry())
	if err := icydb.Register[Note](db, icydb.EntitySpec{
		Path:       "notes",
		PrimaryKey: "id",
		Indexes: []icydb.IndexSpec{
			{Name: "by_pinned", Fields: []string{"pinned"}},
		},
	}); err != nil {
		return nil, err
	}

	s := db.Session()
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		s.Debug(log)
	}
	return s, nil
}

type putFlags struct {
	id     uint64
	title  string
	body   string
	pinned bool
}

func putCmd() *cobra.Command {
	flags := &putFlags{}
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Insert a note",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPut(flags)
		},
	}
	cmd.Flags().Uint64Var(&flags.id, "id", 0, "note id")
	cmd.Flags().StringVar(&flags.title, "title", "", "note title")
	cmd.Flags().StringVar(&flags.body, "body", "", "note body")
	cmd.Flags().BoolVar(&flags.pinned, "pinned", false, "pin the note")
	return cmd
}

func runPut(flags *putFlags) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	note := Note{ID: flags.id, Title: flags.title, Body: flags.body, Pinned: flags.pinned}
	if err := s.Insert(note); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	fmt.Printf("inserted note %d\n", flags.id)
	return nil
}

type loadFlags struct {
	pinnedOnly bool
	limit      uint64
}

func loadCmd() *cobra.Command {
	flags := &loadFlags{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "List notes, ordered by id",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLoad(flags)
		},
	}
	cmd.Flags().BoolVar(&flags.pinnedOnly, "pinned-only", false, "only list pinned notes")
	cmd.Flags().Uint64Var(&flags.limit, "limit", 20, "max rows to return")
	return cmd
}

func runLoad(flags *loadFlags) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	q := icydb.Load[Note](s).OrderBy("id", false).Limit(flags.limit)
	if flags.pinnedOnly {
		q = q.Where("pinned", predicate.Eq, true)
	}
	resp, err := icydb.ExecuteQuery(s, q)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	for _, n := range resp.Rows {
		fmt.Printf("%d\t%s\t%t\t%s\n", n.ID, n.Title, n.Pinned, n.Body)
	}
	if resp.HasMore {
		fmt.Fprintln(os.Stderr, "more rows available; increase --limit")
	}
	return nil
}

type deleteFlags struct {
	id uint64
}

func deleteCmd() *cobra.Command {
	flags := &deleteFlags{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a note by id",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDelete(flags)
		},
	}
	cmd.Flags().Uint64Var(&flags.id, "id", 0, "note id to delete")
	return cmd
}

func runDelete(flags *deleteFlags) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	q := icydb.ForDelete[Note](s).Where("id", predicate.Eq, flags.id)
	n, err := icydb.Delete(s, q)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Printf("deleted %d note(s)\n", n)
	return nil
}
