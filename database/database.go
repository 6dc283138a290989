package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/satoshifaucet/faucetd/database/models"
	log "github.com/sirupsen/logrus"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	// EmbeddedHost runs a private postgres instance next to the daemon.
	EmbeddedHost = "embedded"
	// SQLiteHost stores the ledger in a single file, for development and tests.
	SQLiteHost = "sqlite"
)

type Database struct {
	host       string
	username   string
	password   string
	database   string
	port       uint32
	dataPath   string
	keepAlive  bool
	connection *embeddedpostgres.EmbeddedPostgres
	orm        *gorm.DB
}

// NewDatabase opens the ledger. host is EmbeddedHost, SQLiteHost or the
// hostname of an external postgres server. The returned function releases the
// connection and, unless keepAlive is set, stops the embedded server.
func NewDatabase(username, password, database string, port uint32, dataPath, host string, keepAlive bool) (*Database, func() error, error) {
	db := &Database{
		host:      host,
		username:  username,
		password:  password,
		database:  database,
		port:      port,
		dataPath:  dataPath,
		keepAlive: keepAlive,
	}

	if host == SQLiteHost {
		return NewSQLiteDatabase(db.sqlitePath())
	}

	if host == EmbeddedHost {
		if err := db.startEmbedded(); err != nil {
			return nil, nil, err
		}
	}

	if err := db.ping(); err != nil {
		db.stopEmbedded()

		return nil, nil, err
	}

	orm, err := gorm.Open(postgres.Open(db.GetConnectionURL()), gormConfig())
	if err != nil {
		db.stopEmbedded()

		return nil, nil, fmt.Errorf("error connecting GORM: %w", err)
	}
	db.orm = orm

	return db, db.close, nil
}

// NewSQLiteDatabase opens (creating if needed) a SQLite ledger at path.
func NewSQLiteDatabase(path string) (*Database, func() error, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	orm, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), gormConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := orm.DB()
	if err != nil {
		return nil, nil, err
	}
	// SQLite allows a single writer, serialize everything through one connection.
	sqlDB.SetMaxOpenConns(1)

	db := &Database{host: SQLiteHost, dataPath: path, orm: orm}

	return db, db.close, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

func (d *Database) GetConnectionURL() string {
	if d.host == SQLiteHost {
		return "file:" + d.sqlitePath()
	}

	host := d.host
	if host == EmbeddedHost {
		host = "localhost"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.username, d.password),
		Host:     fmt.Sprintf("%s:%d", host, d.port),
		Path:     d.database,
		RawQuery: "sslmode=disable",
	}

	return u.String()
}

func (d *Database) sqlitePath() string {
	if strings.HasSuffix(d.dataPath, ".db") {
		return d.dataPath
	}

	return filepath.Join(d.dataPath, d.database+".db")
}

func (d *Database) isPostgres() bool {
	return d.host != SQLiteHost
}

func (d *Database) startEmbedded() error {
	config := embeddedpostgres.DefaultConfig().
		Username(d.username).
		Password(d.password).
		Database(d.database).
		Port(d.port).
		Logger(log.StandardLogger().WriterLevel(log.DebugLevel))
	if d.dataPath != "" {
		config = config.DataPath(filepath.Join(d.dataPath, "data")).
			RuntimePath(filepath.Join(d.dataPath, "runtime"))
	}
	d.connection = embeddedpostgres.NewDatabase(config)

	if err := d.connection.Start(); err != nil {
		// A previous run started with keep-alive is still serving the data dir.
		if d.keepAlive && strings.Contains(err.Error(), "already listening on port") {
			log.Info("reusing embedded database kept alive by a previous run")
			d.connection = nil

			return nil
		}
		d.connection = nil

		return fmt.Errorf("error starting database: %w", err)
	}

	log.Info("✅ DB started")

	return nil
}

func (d *Database) stopEmbedded() {
	if d.connection == nil || d.keepAlive {
		return
	}
	if err := d.connection.Stop(); err != nil {
		log.WithError(err).Error("error stopping database")
	}
	d.connection = nil
}

// ping checks the server answers before handing it to GORM.
func (d *Database) ping() error {
	conn, err := sql.Open("postgres", d.GetConnectionURL())
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}

	return nil
}

func (d *Database) close() error {
	var errs []error
	if d.orm != nil {
		if sqlDB, err := d.orm.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if d.connection != nil && !d.keepAlive {
		errs = append(errs, d.connection.Stop())
		d.connection = nil
	}

	return errors.Join(errs...)
}

func (d *Database) ORM() *gorm.DB {
	return d.orm
}

// MigrateDatabase creates the ledger tables and the balance row.
func (d *Database) MigrateDatabase() error {
	if d.isPostgres() {
		if err := d.orm.Exec(models.ClaimStatusEnumSQL()).Error; err != nil {
			return fmt.Errorf("error creating enum types: %w", err)
		}
	}

	if err := d.orm.AutoMigrate(&models.Claim{}, &models.Balance{}); err != nil {
		return fmt.Errorf("error migrating models: %w", err)
	}

	err := d.orm.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Balance{ID: models.BalanceRowID}).Error
	if err != nil {
		return fmt.Errorf("error creating balance row: %w", err)
	}

	return nil
}

// ResetDatabase drops every ledger table.
func (d *Database) ResetDatabase() error {
	if err := d.orm.Migrator().DropTable(&models.Claim{}, &models.Balance{}); err != nil {
		return fmt.Errorf("error dropping tables: %w", err)
	}
	if d.isPostgres() {
		if err := d.orm.Exec(`DROP TYPE IF EXISTS "public"."claim_status"`).Error; err != nil {
			return fmt.Errorf("error dropping enum types: %w", err)
		}
	}

	return nil
}
