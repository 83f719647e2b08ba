package vulnlib

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const dbName = "portvuln.db"

func (cli *Client) dbPath() string {
	return filepath.Join(cli.Store, dbName)
}

func (cli *Client) Init() error {

	if cli.Store == "" {
		store, err := defaultStore()
		if err != nil {
			log.Printf("failed to get home dir, error: %v", err)
			return err
		}
		cli.Store = store
	}

	if err := mkFolder(cli.Store); err != nil {
		log.Printf("failed to create folder, error: %v", err)
		return err
	}

	db, err := sql.Open("sqlite3", cli.dbPath())
	if err != nil {
		return err
	}

	vulTable := `CREATE TABLE IF NOT EXISTS vulns (
			"ID" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			"Hash" TEXT UNIQUE,
			"CVEID" TEXT,
			"Service" TEXT,
			"VersionRange" TEXT,
			"Severity" TEXT,
			"Summary" TEXT,
			"Mitigation" TEXT,
			"Reference" TEXT);`
	if _, err = db.Exec(vulTable); err != nil {
		db.Close()
		return err
	}

	cli.DB = db
	return nil
}

func (cli *Client) Close() error {
	if cli.DB == nil {
		return nil
	}
	err := cli.DB.Close()
	cli.DB = nil
	return err
}

// Reset removes the database and the date log.
func (cli *Client) Reset() error {
	if err := cli.Close(); err != nil {
		return err
	}

	for _, f := range []string{cli.dbPath(), filepath.Join(cli.Store, dateLog)} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func recordHash(r *Record) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s%s%s", r.ID, r.Service, r.VersionRange)))
	return hex.EncodeToString(hash[:])
}

// Insert stores records, skipping ones already present. It returns the
// number of new rows.
func (cli *Client) Insert(records []*Record) (int, error) {
	inserted := 0

	sqlRow := `INSERT INTO vulns 
				  ("Hash", "CVEID", "Service", "VersionRange", "Severity", "Summary", "Mitigation", "Reference") 
				   VALUES
				  (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, r := range records {
		_, err := cli.DB.Exec(sqlRow, recordHash(r), r.ID, r.Service, r.VersionRange,
			string(ParseSeverity(string(r.Severity))), r.Summary, r.Mitigation, r.Reference)

		if err != nil {
			if strings.Contains(err.Error(), "vulns.Hash") {
				continue
			}
			return inserted, err
		}
		inserted++
	}

	return inserted, nil
}

func (cli *Client) query(sqlRow string, args ...interface{}) ([]*Record, error) {
	records := []*Record{}

	rows, err := cli.DB.Query(sqlRow, args...)
	if err != nil {
		return records, err
	}

	defer rows.Close()

	for rows.Next() {
		var id int
		var hash, severity string
		r := &Record{}
		err = rows.Scan(&id, &hash, &r.ID, &r.Service, &r.VersionRange,
			&severity, &r.Summary, &r.Mitigation, &r.Reference)
		if err != nil {
			continue
		}
		r.Severity = Severity(severity)

		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return records, err
	}

	return records, nil
}

func (cli *Client) All() ([]*Record, error) {
	return cli.query(`SELECT * FROM vulns ORDER BY ID`)
}

// QueryByService matches the service the same way Catalog.Lookup does.
func (cli *Client) QueryByService(name string) ([]*Record, error) {
	return cli.query(`SELECT * FROM vulns WHERE instr(lower(Service), ?) > 0 ORDER BY ID`,
		strings.ToLower(name))
}

func (cli *Client) QueryByID(cveid string) ([]*Record, error) {
	return cli.query(`SELECT * FROM vulns WHERE CVEID = ? ORDER BY ID`, cveid)
}

// DBProvider loads the catalog from the local sqlite store.
type DBProvider struct {
	Client *Client
}

func (p *DBProvider) Load(ctx context.Context) (*Catalog, error) {
	// each load opens its own handle on a copy, the shared Client is only read
	cli := *p.Client
	cli.DB = nil

	if cli.Store != "" && !exists(cli.dbPath()) {
		return nil, fmt.Errorf("%w: no database in %s, run 'portvuln catalog update' first",
			ErrCatalogUnavailable, cli.Store)
	}

	if err := cli.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	defer cli.Close()

	records, err := cli.All()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	catalog := NewCatalog(records)
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: database is empty", ErrCatalogUnavailable)
	}

	log.Printf("Loaded %d CVEs from %s", catalog.Len(), cli.dbPath())

	return catalog, nil
}
