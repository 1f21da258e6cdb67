// Command landtool inspects and ports ledger snapshot databases: compressed
// archive export/import, integrity verification, and quick queries.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/virtualand/landgrid/internal/persistence"
)

func main() {
	dbPath := flag.String("db", "data/ledger.db", "snapshot database path")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "export":
		err = runExport(*dbPath, args[1:])
	case "import":
		err = runImport(*dbPath, args[1:])
	case "verify":
		err = runVerify(args[1:])
	case "events":
		err = runEvents(*dbPath, args[1:])
	case "owners":
		err = runOwners(*dbPath, args[1:])
	case "info":
		err = runInfo(*dbPath)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "landtool:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: landtool [-db path] <command>

Commands:
  export <archive>   write the snapshot to a compressed archive
  import <archive>   replace the snapshot database from an archive
  verify <archive>   check an archive's checksum and version
  events [n]         print the most recent ledger events
  owners <address>   print parcels owned by an address
  info               print snapshot metadata and record counts`)
}

func openDB(path string) (*persistence.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return persistence.Open(path)
}

func runExport(dbPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <archive>")
	}
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.LoadSnapshot()
	if err != nil {
		return err
	}
	if err := persistence.ExportArchive(args[0], snap); err != nil {
		return err
	}
	fmt.Printf("exported %d ownership, %d listing, %d event records to %s\n",
		len(snap.Ownership), len(snap.Listings), len(snap.Events), args[0])
	return nil
}

func runImport(dbPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: import <archive>")
	}
	snap, err := persistence.ImportArchive(args[0])
	if err != nil {
		return err
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveSnapshot(snap); err != nil {
		return err
	}
	fmt.Printf("imported %d ownership, %d listing, %d event records into %s\n",
		len(snap.Ownership), len(snap.Listings), len(snap.Events), dbPath)
	return nil
}

func runVerify(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: verify <archive>")
	}
	if err := persistence.VerifyArchive(args[0]); err != nil {
		return err
	}
	fmt.Println("archive ok")
	return nil
}

func runEvents(dbPath string, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad limit %q", args[0])
		}
		limit = n
	}
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := db.RecentEvents(limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%s  %-8s parcel=%-5d district=%-8s actor=%s", e.Timestamp.Format(time.DateTime),
			e.Type, e.ParcelID, e.DistrictID, e.Actor)
		if e.Counterparty != "" {
			fmt.Printf(" counterparty=%s", e.Counterparty)
		}
		if e.Price != 0 {
			fmt.Printf(" price=%.2f", e.Price)
		}
		fmt.Println()
	}
	return nil
}

func runOwners(dbPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: owners <address>")
	}
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.LoadSnapshot()
	if err != nil {
		return err
	}
	count := 0
	for _, rec := range snap.Ownership {
		if rec.Owner == args[0] {
			fmt.Printf("parcel %d — acquired %s for %.2f\n",
				rec.ParcelID, rec.AcquiredAt.Format(time.DateTime), rec.AcquisitionCost)
			count++
		}
	}
	fmt.Printf("%d parcel(s)\n", count)
	return nil
}

func runInfo(dbPath string) error {
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.LoadSnapshot()
	if err != nil {
		return err
	}
	version, _ := db.GetMeta("schema_version")
	savedAt, _ := db.GetMeta("saved_at")
	if ns, err := strconv.ParseInt(savedAt, 10, 64); err == nil {
		savedAt = time.Unix(0, ns).Format(time.DateTime)
	}
	fmt.Printf("schema version: %s\nsaved at:       %s\nownership:      %d\nlistings:       %d\nevents:         %d\n",
		version, savedAt, len(snap.Ownership), len(snap.Listings), len(snap.Events))
	return nil
}
