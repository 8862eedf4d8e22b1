package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DBError is the driver-agnostic view of a Postgres error.
type DBError struct {
	SQLState   string `json:"sql_state"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Report is what gets logged for a failed request. It never reaches clients.
type Report struct {
	Message string   `json:"message"`
	Code    Code     `json:"code,omitempty"`
	Causes  []string `json:"causes,omitempty"`
	DB      *DBError `json:"db,omitempty"`
}

// Inspect unwinds err into a Report.
func Inspect(err error) Report {
	if err == nil {
		return Report{}
	}

	report := Report{Message: err.Error(), DB: postgresError(err)}
	if typed := As(err); typed != nil {
		report.Code = typed.Code()
	}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		report.Causes = append(report.Causes, fmt.Sprintf("%T: %v", cause, cause))
	}
	return report
}

// LogFields flattens the report for structured logging.
func (r Report) LogFields() map[string]any {
	fields := map[string]any{
		"error":      r.Message,
		"error_code": r.Code,
	}
	if len(r.Causes) > 0 {
		fields["error_causes"] = r.Causes
	}
	if r.DB != nil {
		fields["db_sql_state"] = r.DB.SQLState
		fields["db_constraint"] = r.DB.Constraint
		fields["db_table"] = r.DB.Table
		fields["db_detail"] = r.DB.Detail
	}
	return fields
}

func postgresError(err error) *DBError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DBError{
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DBError{
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
