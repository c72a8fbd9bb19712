package postgres

import (
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// int64Array is a bigint[] on PostgreSQL and the same array literal in a text column elsewhere.
type int64Array pq.Int64Array

func (int64Array) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "bigint[]"
	}
	return "text"
}

func (a int64Array) Value() (driver.Value, error) {
	return pq.Int64Array(a).Value()
}

func (a *int64Array) Scan(src any) error {
	return (*pq.Int64Array)(a).Scan(src)
}

// jsonText is jsonb on PostgreSQL and text elsewhere.
type jsonText string

func (jsonText) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func (j jsonText) Value() (driver.Value, error) {
	return string(j), nil
}

func (j *jsonText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = ""
	case []byte:
		*j = jsonText(v)
	case string:
		*j = jsonText(v)
	default:
		return fmt.Errorf("jsonText: unsupported source %T", src)
	}
	return nil
}
