package config

import (
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DSN builds the MySQL connection string. Times are read as UTC and rows-affected counts matched rows.
func (c *Config) DSN() string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.ClientFoundRows = true
	return dsn.FormatDSN()
}

// ConnectDB opens the pool and pings it, retrying while the database starts up.
func ConnectDB(c *Config) (*sqlx.DB, error) {
	retries := c.DBRetries
	if retries < 1 {
		retries = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		var db *sqlx.DB
		db, err = sqlx.Connect("mysql", c.DSN())
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetConnMaxLifetime(5 * time.Minute)
			log.Info().Msgf("Connected to DB %s", c.DBName)
			return db, nil
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to connect to DB %s (%s:%s)", i+1, c.DBName, c.DBHost, c.DBPort)
		if i < retries-1 {
			time.Sleep(c.DBRetryDelay)
		}
	}
	return nil, errors.Wrapf(err, "connect to DB %s at %s:%s after %d attempts", c.DBName, c.DBHost, c.DBPort, retries)
}

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(c *Config) *redis.Client {
	if c.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: c.RedisAddr})
}
