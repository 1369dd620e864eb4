package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cityguardian/models"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

const departmentsQuery = `SELECT name, email, keywords FROM departments WHERE active = 1 ORDER BY id`

// DBConfig is the MySQL connection used to read the departments table.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the go-sql-driver data source name.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.Name)
}

// Connect opens the database and waits for it to answer, backing off exponentially
// until ctx is done.
func Connect(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	waitInterval := time.Second
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		pingErr := db.PingContext(pingCtx)
		cancel()
		if pingErr == nil {
			break
		}
		log.WithError(pingErr).Warnf("Database connection failed, retrying in %v", waitInterval)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("database not reachable: %w", pingErr)
		case <-time.After(waitInterval):
		}
		waitInterval *= 2
		if waitInterval > 30*time.Second {
			waitInterval = 30 * time.Second
		}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// LoadFromDB reads active departments. Keywords are stored comma-separated.
func LoadFromDB(ctx context.Context, db *sql.DB, defaultEmail string) (*Directory, error) {
	rows, err := db.QueryContext(ctx, departmentsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var (
			dept     models.Department
			keywords sql.NullString
		)
		if err := rows.Scan(&dept.Name, &dept.Email, &keywords); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		if keywords.Valid {
			dept.Keywords = strings.Split(keywords.String, ",")
		}
		departments = append(departments, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read departments: %w", err)
	}

	log.Infof("Loaded %d departments from database", len(departments))
	if defaultEmail == "" {
		defaultEmail = DefaultEmail
	}
	return New(departments, defaultEmail)
}
