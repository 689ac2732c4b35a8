package netquery

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed query.schema.json
var querySchemaJSON []byte

var (
	querySchemaOnce sync.Once
	querySchema     *jsonschema.Schema
	querySchemaErr  error
)

func compiledQuerySchema() (*jsonschema.Schema, error) {
	querySchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(querySchemaJSON))
		if err != nil {
			querySchemaErr = fmt.Errorf("parsing query schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("netquery-query.json", doc); err != nil {
			querySchemaErr = fmt.Errorf("adding query schema resource: %w", err)
			return
		}

		querySchema, querySchemaErr = compiler.Compile("netquery-query.json")
	})
	return querySchema, querySchemaErr
}

// QuerySchema returns the JSON schema describing the wire query format.
func QuerySchema() []byte {
	return bytes.Clone(querySchemaJSON)
}

// ValidateQuery checks that q encodes to the wire format the store accepts.
// It only checks shape; field names and operator/value compatibility are
// left to the store.
func ValidateQuery(q *Query) error {
	if q == nil {
		return errors.New("query is nil")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}
	return ValidateQueryJSON(data)
}

// ValidateQueryJSON checks an encoded wire query against the schema.
func ValidateQueryJSON(data []byte) error {
	schema, err := compiledQuerySchema()
	if err != nil {
		return err
	}

	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return &QueryShapeError{Causes: flattenValidationError(verr)}
		}
		return err
	}
	return nil
}

// QueryShapeError lists the places where a query violates the wire format.
type QueryShapeError struct {
	Causes []string
}

func (e *QueryShapeError) Error() string {
	return "malformed netquery query: " + strings.Join(e.Causes, "; ")
}

var printer = message.NewPrinter(language.English)

// flattenValidationError collects the leaf errors of a validation tree.
func flattenValidationError(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		if verr.ErrorKind == nil {
			return []string{loc}
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.ErrorKind.LocalizedString(printer))}
	}
	var out []string
	for _, cause := range verr.Causes {
		out = append(out, flattenValidationError(cause)...)
	}
	return out
}
