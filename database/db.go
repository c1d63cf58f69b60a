package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn   *sql.DB
	Cache  cache.Cache
	driver string
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Driver, configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, driver: configuration.DataSource.Driver}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(driver, dns string) (*sql.DB, error) {
	db, err := sql.Open(driver, dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error ❌: %v", err)
		return nil, err
	}
	err = createLinkTable(db, driver)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createLinkTable creates the links table. The secret key column holds the
// only copy of a link's custody key, so the table is append-mostly: rows are
// removed only when creation fails before any funds move.
func createLinkTable(db *sql.DB, driver string) error {
	serial := "SERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS links (
			id %s,
			link_id TEXT NOT NULL UNIQUE,
			secret_key TEXT NOT NULL,
			address TEXT NOT NULL,
			symbol TEXT NOT NULL,
			mint TEXT NOT NULL,
			decimals INTEGER NOT NULL,
			amount TEXT NOT NULL,
			status TEXT NOT NULL,
			tx_signature TEXT NOT NULL DEFAULT '',
			last_error TEXT NOT NULL DEFAULT '',
			meta_data TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)
	`, serial))
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_links_address ON links (address)`)
	return err
}

// rebind rewrites ? placeholders into the $N form when the backing store
// expects it. Queries in this package are written in ? form.
func (d Datasource) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
