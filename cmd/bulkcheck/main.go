// Command bulkcheck dry-runs a bulk order file against a store list without
// submitting anything. It exits 1 when any row is rejected.
//
//	bulkcheck -stores stores.json [-schema paired] [-dup first] orders.tsv
//	bulkcheck -history V123
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/config"
	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/journal"
	"github.com/dropline/vendor-console/internal/vendorapi"
)

func main() {
	// CLI flags
	storesPath := flag.String("stores", "", "JSON file with the vendor's stores")
	schemaName := flag.String("schema", "", "Column layout: paired, split or csv")
	dup := flag.String("dup", "", "Duplicate store names: first or reject")
	vehicle := flag.String("vehicle", "", "Default vehicle type")
	history := flag.String("history", "", "Print recent journaled submissions for this vendor id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *history != "" {
		if err := printHistory(cfg.DatabaseURL, *history, os.Stdout); err != nil {
			log.Fatalf("history: %v", err)
		}
		return
	}

	// Fall back to the server's settings
	if *schemaName == "" {
		*schemaName = cfg.BulkSchema
	}
	if *dup == "" {
		*dup = cfg.BulkDuplicateStores
	}
	if *vehicle == "" {
		*vehicle = cfg.BulkDefaultVehicle
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bulkcheck -stores stores.json [-schema paired] [-dup first] FILE")
		os.Exit(2)
	}

	schema, err := bulk.SchemaByName(*schemaName)
	if err != nil {
		log.Fatal(err)
	}
	policy, err := bulk.ParseDuplicatePolicy(*dup)
	if err != nil {
		log.Fatal(err)
	}
	if !enum.IsVehicleType(*vehicle) {
		log.Fatalf("unknown vehicle type %q", *vehicle)
	}

	stores, err := loadStores(*storesPath, cfg)
	if err != nil {
		log.Fatalf("Unable to load stores: %v", err)
	}

	res, err := check(flag.Arg(0), schema, stores, policy, *vehicle)
	if err != nil {
		log.Fatalf("Unable to read %s: %v", flag.Arg(0), err)
	}
	report(os.Stdout, res)
	if res.Rejected() > 0 {
		os.Exit(1)
	}
}

// check parses a .tsv/.txt/.csv text file or an .xlsx workbook.
func check(path string, schema bulk.Schema, stores []bulk.StoreRecord, policy bulk.DuplicatePolicy, vehicle string) (*bulk.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	source := enum.SourceBulk
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		source = enum.SourceBulkXLSX
	}
	p := bulk.NewParser(schema, stores, policy, bulk.AssembleOptions{DefaultVehicle: vehicle, Source: source})

	if source == enum.SourceBulkXLSX {
		return p.ParseXLSX(f)
	}
	text, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return p.Parse(string(text)), nil
}

// loadStores reads a store list file, or fetches the list from the platform
// when no file is given and UPSTREAM_TOKEN is set.
func loadStores(path string, cfg *config.Config) ([]bulk.StoreRecord, error) {
	var stores []vendorapi.Store
	switch {
	case path != "":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &stores); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case cfg.UpstreamBaseURL != "" && os.Getenv("UPSTREAM_TOKEN") != "":
		client := vendorapi.New(vendorapi.Options{
			BaseURL: cfg.UpstreamBaseURL,
			Timeout: cfg.UpstreamTimeout,
			Retries: cfg.UpstreamRetries,
		}).WithToken(os.Getenv("UPSTREAM_TOKEN"))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var err error
		if stores, err = client.ListStores(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("pass -stores or set UPSTREAM_BASE_URL and UPSTREAM_TOKEN")
	}

	out := make([]bulk.StoreRecord, 0, len(stores))
	for _, s := range stores {
		out = append(out, bulk.StoreRecord{StoreID: s.StoreID, Name: s.Name, Lat: s.Lat, Lng: s.Lng})
	}
	return out, nil
}

func report(w io.Writer, res *bulk.Result) {
	fmt.Fprintf(w, "%d line(s): %d accepted, %d rejected\n", res.Lines, res.Accepted(), res.Rejected())
	for _, e := range res.Errors {
		fmt.Fprintln(w, e.Message)
	}
	if res.Blocked() {
		fmt.Fprintln(w, "batch would NOT be submittable")
	} else {
		fmt.Fprintln(w, "batch is ready to submit")
	}
}

func printHistory(dbURL, vendorID string, w io.Writer) error {
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	entries, err := journal.NewPG(pool).Recent(ctx, vendorID, 20)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-9s  %s  orders=%d created=%d  %s\n",
			e.CreatedAt.Format(time.RFC3339), e.Status, e.BatchID, e.Orders, e.Created, e.Error)
	}
	return nil
}
