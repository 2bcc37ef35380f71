// Package validation checks raw customer records against a typed schema and
// projects them onto the configured feature columns.
//
// Validation never gates: Validate always returns the projected table, with
// any problems collected in Errors. Callers decide whether to continue.
package validation

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// FieldError is one problem with one field of one record.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Type    string `json:"type"`
	Message string `json:"msg"`
	Input   any    `json:"input"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("inputs[%d].%s: %s", e.Index, e.Field, e.Message)
}

// Errors is the structured error payload of a validation run.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(e), strings.Join(parts, "; "))
}

// Indices returns the distinct record indices with errors, in order.
func (e Errors) Indices() []int {
	var out []int
	seen := make(map[int]bool)
	for _, fe := range e {
		if !seen[fe.Index] {
			seen[fe.Index] = true
			out = append(out, fe.Index)
		}
	}
	return out
}

// Validator validates records against a schema and projects them onto a
// fixed feature list. It is safe for concurrent use.
type Validator struct {
	schema   Schema
	features []string
	logger   *zap.Logger
}

// New creates a validator for the configured customer schema and features.
func New(cfg *config.Config, l *zap.Logger) *Validator {
	return NewWithSchema(SchemaFromConfig(&cfg.Model), cfg.Model.Features, l)
}

// NewWithSchema creates a validator for an explicit schema.
func NewWithSchema(schema Schema, features []string, l *zap.Logger) *Validator {
	return &Validator{
		schema:   schema,
		features: append([]string(nil), features...),
		logger:   logger.OrGlobal(l).With(zap.String("component", "validator")),
	}
}

// Features returns the projection columns in order.
func (v *Validator) Features() []string { return append([]string(nil), v.features...) }

// Validate checks every record and returns the table projected onto the
// feature list. Coerced values replace raw ones where coercion succeeded;
// fields absent from a record are nil. The Errors value is nil when every
// record is clean.
func (v *Validator) Validate(records []table.Record) (*table.Table, Errors) {
	var errs Errors
	normalised := make([]table.Record, len(records))

	for i, rec := range records {
		out := make(table.Record, len(v.features))
		for _, name := range v.features {
			raw, present := rec[name]
			if !present {
				continue
			}
			field, known := v.schema.Lookup(name)
			if !known {
				out[name] = raw
				continue
			}
			c := coerce(field, raw)
			out[name] = c.value
			if c.errType != "" {
				errs = append(errs, FieldError{Index: i, Field: name, Type: c.errType, Message: c.msg, Input: raw})
				continue
			}
			if errType, msg, valid := constrain(field, c.value); !valid {
				errs = append(errs, FieldError{Index: i, Field: name, Type: errType, Message: msg, Input: raw})
			}
		}
		normalised[i] = out
	}

	if len(errs) > 0 {
		v.logger.Debug("records failed validation",
			zap.Int("records", len(records)),
			zap.Int("errors", len(errs)),
			zap.Ints("indices", errs.Indices()))
	}
	return table.FromRecords(v.features, normalised), errs
}
