package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type tableStore struct {
	db *gorm.DB
}

func NewTableStore(db *gorm.DB) TableStore {
	return &tableStore{db: db}
}

func (t tableStore) Select(ctx context.Context, table, query string, args ...interface{}) ([]map[string]interface{}, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0)
	q := t.db.WithContext(ctx).Table(table)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (t tableStore) Count(ctx context.Context, table, query string, args ...interface{}) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}

	var n int64
	q := t.db.WithContext(ctx).Table(table)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Count(&n).Error
	return n, err
}

func (t tableStore) Delete(ctx context.Context, table, query string, args ...interface{}) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}

	stmt := fmt.Sprintf("DELETE FROM %q", table)
	if query != "" {
		stmt += " WHERE " + query
	}
	res := t.db.WithContext(ctx).Exec(stmt, args...)
	return res.RowsAffected, res.Error
}

func (t tableStore) Insert(ctx context.Context, table string, rows []map[string]interface{}) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res := t.db.WithContext(ctx).Table(table).Create(rows)
	return res.RowsAffected, res.Error
}

func (t tableStore) Truncate(ctx context.Context, table string) error {
	if err := checkIdentifier(table); err != nil {
		return err
	}
	return t.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %q", table)).Error
}

func (t tableStore) HasTable(table string) bool {
	if err := checkIdentifier(table); err != nil {
		return false
	}
	return t.db.Migrator().HasTable(table)
}

// checkIdentifier rejects table names that cannot be safely interpolated as
// identifiers. Predicates themselves are always bound through placeholders.
func checkIdentifier(table string) error {
	if !identifierPattern.MatchString(table) {
		return errors.Errorf("invalid table identifier: %q", table)
	}
	return nil
}
