package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"StandupPulse/config"
	"StandupPulse/db"
	"StandupPulse/logger"

	"github.com/spf13/cobra"
)

var (
	storeKind  string
	storeToday bool
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the configured record store",
}

var storeColumnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the columns of a record table",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := db.ParseKind(storeKind)
		if err != nil {
			return err
		}
		store, cleanup, err := inspectionStore()
		if err != nil {
			return err
		}
		defer cleanup()

		cols, err := store.Columns(cmd.Context(), kind)
		if err != nil {
			return err
		}
		for _, c := range cols {
			fmt.Println(c)
		}
		return nil
	},
}

var storeRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Print the stored records of one kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := db.ParseKind(storeKind)
		if err != nil {
			return err
		}
		store, cleanup, err := inspectionStore()
		if err != nil {
			return err
		}
		defer cleanup()

		recs, err := rows(cmd.Context(), store, kind)
		if err != nil {
			return err
		}
		return printRecords(kind, recs)
	},
}

func init() {
	storeCmd.PersistentFlags().StringVar(&storeKind, "kind", string(db.KindStandup), "Record kind: standup, quick, health or blocker")
	storeRowsCmd.Flags().BoolVar(&storeToday, "today", false, "Only records from today")

	storeCmd.AddCommand(storeColumnsCmd)
	storeCmd.AddCommand(storeRowsCmd)
}

type inspectedStore struct {
	db.Store
	postgres *db.Postgres
	loc      *time.Location
}

func inspectionStore() (*inspectedStore, func(), error) {
	log := logger.New("warn", "logfmt")
	config.LoadEnv(log)
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	switch {
	case cfg.Coda.Enabled():
		return &inspectedStore{Store: newCoda(cfg, log), loc: cfg.Location}, func() {}, nil
	case cfg.DatabaseURL != "":
		pg, err := db.Open(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		return &inspectedStore{Store: pg, postgres: pg, loc: cfg.Location}, func() { pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: set CODA_API_TOKEN and CODA_DOC_ID or DATABASE_URL", db.ErrStoreUnavailable)
	}
}

func rows(ctx context.Context, s *inspectedStore, kind db.Kind) ([]db.Record, error) {
	now := time.Now().In(s.loc)
	if storeToday && s.postgres != nil {
		return s.postgres.RecordsForDay(ctx, kind, now)
	}
	recs, err := s.Records(ctx, kind)
	if err != nil || !storeToday {
		return recs, err
	}
	y, m, d := now.Date()
	today := recs[:0]
	for _, r := range recs {
		ry, rm, rd := r.Timestamp.In(s.loc).Date()
		if ry == y && rm == m && rd == d {
			today = append(today, r)
		}
	}
	return today, nil
}

func printRecords(kind db.Kind, recs []db.Record) error {
	cols := db.ColumnsFor(kind)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range recs {
		cells := r.Cells()
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = oneLine(cells[c])
		}
		fmt.Fprintln(w, strings.Join(line, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d %s record(s)\n", len(recs), kind)
	return nil
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ⏎ ")
}
