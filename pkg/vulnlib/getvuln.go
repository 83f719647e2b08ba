package vulnlib

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kvesta/portvuln/config"
)

const dateLog = "date.txt"

// Update fetches the NVD entries for services into the local database.
// A fresh database is left alone unless reset is set.
func (c *Client) Update(ctx context.Context, services []ServiceQuery, reset bool) error {
	log.Printf(config.Green("Begin updating vulnerability database"))

	if c.Store == "" {
		store, err := defaultStore()
		if err != nil {
			log.Printf("failed to get home dir, error: %v", err)
			return err
		}
		c.Store = store
	}

	if reset {
		if err := c.Reset(); err != nil {
			log.Printf("failed to reset database, error: %v", err)
			return err
		}
	}

	if !checkExpired(c.Store) {
		log.Printf("Vulnerability Database is already initialized")
		return nil
	} else {
		log.Printf("Vulnerability Data expired, updating database")
	}

	err := c.Init()
	if err != nil {
		log.Printf("failed to init database")
		return err
	}

	defer c.Close()

	records, err := c.FetchNVD(ctx, services)
	if err != nil {
		log.Printf("failed to get nvd data, error: %v", err)
		return err
	}

	inserted, err := c.Insert(records)
	if err != nil {
		log.Printf("failed to store nvd data, error: %v", err)
		return err
	}
	log.Printf("Stored %d new CVEs (%d fetched)", inserted, len(records))

	// Write log
	err = writeLog(c.Store)
	if err != nil {
		log.Printf("failed to write date log, error: %v", err)
	}

	return nil
}

func getHomeDir() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := os.Getwd()
		if err != nil {
			return "", nil
		}
		return dir, nil
	}

	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return dir, nil
}

// defaultStore is ~/.portvuln, or ./portvulndata on windows.
func defaultStore() (string, error) {
	dir, err := getHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "portvulndata"), nil
	}
	return filepath.Join(dir, ".portvuln"), nil
}

// DefaultStore is where the database lives when no store is configured.
func DefaultStore() string {
	store, err := defaultStore()
	if err != nil {
		return ".portvuln"
	}
	return store
}

func exists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}

		return false
	}
	return true
}

func mkFolder(path string) error {
	if path == "" {
		return nil
	}
	if !exists(path) {
		err := os.MkdirAll(path, os.FileMode(0755))
		if err != nil {
			return err
		}
	}
	return nil
}

func parentDir(filename string) string {
	dir := filepath.Dir(filename)
	if dir == "." {
		return ""
	}
	return dir
}

func checkExpired(path string) bool {

	filename := filepath.Join(path, dateLog)
	var dateFile *os.File
	var err error

	if !exists(filename) {
		return true

	} else {
		dateFile, err = os.Open(filename)
		if err != nil {
			log.Printf("failed to open date: %v", err)
			return true
		}
	}

	defer dateFile.Close()

	value, err := ioutil.ReadAll(dateFile)
	if err != nil {
		return true
	}

	today := time.Now()

	if len(value) < 1 {

		return true
	}

	logDate, err := time.Parse("02/01/2006", string(value))

	// Check whether a time format
	if err != nil {
		log.Printf("Date format error, expired")
		return true
	}

	if expire := today.After(logDate.AddDate(0, 0, 1)); expire {
		return true
	}

	return false
}

func writeLog(path string) error {
	filename := filepath.Join(path, dateLog)
	today := time.Now()

	return os.WriteFile(filename, []byte(today.Format("02/01/2006")), 0644)
}
