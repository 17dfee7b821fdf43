package database

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deukmosi-create/task-earning-platform/config"
)

// Connect opens the configured database with pooling and retry.
func Connect(cfg config.DatabaseConfig, development bool, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormLogger(development),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql", "":
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, err
		}
		safeDSN := dsn
		if cfg.Pass != "" {
			safeDSN = strings.Replace(safeDSN, cfg.Pass, "******", 1)
		}
		log.Info("database dsn", zap.String("dsn", safeDSN))
		dialector = gormmysql.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported driver %q", cfg.Driver)
	}

	// Retry connection with exponential backoff
	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	var db *gorm.DB
	var err error
	backoff := time.Second
	for attempt := 0; attempt < retries; attempt++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Warn("database connect failed", zap.Int("attempt", attempt+1), zap.Error(err))
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time; the driver serializes the rest
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.PingOnConnect {
		if err := pingWithTimeout(sqlDB, 5*time.Second); err != nil {
			return nil, errors.Wrap(err, "database ping failed")
		}
	}
	return db, nil
}

// OpenSQLite opens a SQLite database with the settings the stores rely on:
// foreign keys enforced, translated errors and UTC timestamps. Used by the
// dev server and by package tests with "file:<name>?mode=memory&cache=shared".
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=1&_busy_timeout=5000"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func mysqlDSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, registerTLS(cfg, cfg.DSN)
	}
	params := cfg.Params
	if !strings.Contains(params, "tls=") {
		if cfg.TLS == "true" || cfg.TLS == "preferred" {
			if cfg.TLSVerify {
				params += "&tls=custom"
			} else {
				params += "&tls=" + cfg.TLS
			}
		}
	}
	for _, p := range []string{"timeout=", "readTimeout=", "writeTimeout="} {
		if !strings.Contains(params, p) {
			params += "&" + p + "10s"
		}
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name, strings.TrimPrefix(params, "&"))
	return dsn, registerTLS(cfg, dsn)
}

// registerTLS registers the "custom" TLS profile referenced by tls=custom.
func registerTLS(cfg config.DatabaseConfig, dsn string) error {
	if !strings.Contains(dsn, "tls=custom") {
		return nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSCAPath != "" {
		caCert, err := os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return errors.Wrap(err, "read DB TLS CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to append CA certs")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.TLSClientCert != "" && cfg.TLSClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSClientCert, cfg.TLSClientKey)
		if err != nil {
			return errors.Wrap(err, "load client cert/key")
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return mysqldriver.RegisterTLSConfig("custom", tlsCfg)
}

func gormLogger(development bool) logger.Interface {
	if development {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}

func pingWithTimeout(db *sql.DB, timeout time.Duration) error {
	ch := make(chan error, 1)
	go func() {
		ch <- db.Ping()
	}()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("ping timeout after %s", timeout)
	}
}
