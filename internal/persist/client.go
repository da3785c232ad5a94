package persist

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client wraps a SQLite connection holding the durable copy of market
// state, per spec.md §6's "single on-disk relational file". Grounded on
// the connection-wrapper shape of a Postgres client elsewhere in the
// retrieved examples (Option struct → DSN → gorm.Open → Client with
// DB()/Close()), with the driver swapped to sqlite since the spec calls
// for a file, not a server.
type Client struct {
	db *gorm.DB
}

// Open creates a Client backed by the SQLite file at path and migrates
// every table this module writes to.
func Open(path string) (*Client, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&OrderRecord{},
		&ExecutionRecord{},
		&InvestorRecord{},
		&HoldingRecord{},
		&TransactionRecord{},
		&PriceHistoryRecord{},
		&AnalyticsTradeRecord{},
		&WebhookRecord{},
	); err != nil {
		return nil, err
	}

	return &Client{db: db}, nil
}

// DB returns the underlying gorm handle, for callers (like the price
// history store below) that need direct query access.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
