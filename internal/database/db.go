package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options carries what is needed to reach MySQL. Timeout bounds dialing,
// reads and writes on a connection; a statement that exceeds it fails and
// its transaction is rolled back.
type Options struct {
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	Timeout time.Duration
}

// DSN renders the driver connection string for the options.
func (o Options) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
		cfg.ReadTimeout = o.Timeout
		cfg.WriteTimeout = o.Timeout
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection. The returned pool is
// owned by the caller, who must Close it on shutdown.
func Open(opts Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", opts.DSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
