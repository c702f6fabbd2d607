// Package schema infers SchemaObjects for schemaless stores (documents,
// JSON files, object prefixes) from sampled records.
package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"go.uber.org/zap"
)

// Inferred data types
const (
	TypeBoolean   = "boolean"
	TypeInteger   = "integer"
	TypeFloat     = "float"
	TypeString    = "string"
	TypeTimestamp = "timestamp"
	TypeUUID      = "uuid"
	TypeArray     = "array"
	TypeObject    = "object"
	TypeBinary    = "binary"
	TypeUnknown   = "unknown"
)

var (
	uuidPattern      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
)

// TypeInferenceEngine derives field types from sample values
type TypeInferenceEngine struct {
	logger *zap.Logger

	// confidenceThreshold is the share of non-null samples the dominant type
	// must reach; below it a mixed field is reported as string
	confidenceThreshold float64
	primaryKeys         map[string]bool
}

// NewTypeInferenceEngine creates an engine. primaryKeys names fields to flag
// as primary keys when present (e.g. "_id" for document stores).
func NewTypeInferenceEngine(logger *zap.Logger, primaryKeys ...string) *TypeInferenceEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	pk := make(map[string]bool, len(primaryKeys))
	for _, k := range primaryKeys {
		pk[k] = true
	}
	return &TypeInferenceEngine{
		logger:              logger,
		confidenceThreshold: 0.95,
		primaryKeys:         pk,
	}
}

// InferObject builds a SchemaObject from samples. Fields follow
// models.Columns order; a field missing from some samples is nullable.
func (e *TypeInferenceEngine) InferObject(name, objectType string, samples []models.Record) core.SchemaObject {
	obj := core.SchemaObject{Name: name, Type: objectType}

	columns := models.Columns(samples)
	obj.Fields = make([]core.SchemaField, 0, len(columns))
	for _, col := range columns {
		values := make([]interface{}, 0, len(samples))
		missing := false
		for _, s := range samples {
			v, ok := s[col]
			if !ok {
				missing = true
				continue
			}
			values = append(values, v)
		}

		dataType, nullable := e.InferType(values)
		obj.Fields = append(obj.Fields, core.SchemaField{
			Name:       col,
			DataType:   dataType,
			Nullable:   (nullable || missing) && !e.primaryKeys[col],
			PrimaryKey: e.primaryKeys[col],
		})
	}

	e.logger.Debug("inferred schema",
		zap.String("object", name),
		zap.Int("samples", len(samples)),
		zap.Int("fields", len(obj.Fields)))
	return obj
}

// InferType returns the dominant type of values and whether any was nil
func (e *TypeInferenceEngine) InferType(values []interface{}) (string, bool) {
	counts := make(map[string]int)
	nonNull := 0
	nullable := false

	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		nonNull++
		counts[DetectValueType(v)]++
	}

	if nonNull == 0 {
		return TypeUnknown, true
	}

	dominant, best := TypeUnknown, 0
	for typ, n := range counts {
		if n > best || (n == best && typ < dominant) {
			dominant, best = typ, n
		}
	}

	if len(counts) > 1 && float64(best)/float64(nonNull) < e.confidenceThreshold {
		// integer and float mix widens to float
		if len(counts) == 2 && counts[TypeInteger] > 0 && counts[TypeFloat] > 0 {
			return TypeFloat, nullable
		}
		return TypeString, nullable
	}
	return dominant, nullable
}

// DetectValueType classifies a single non-nil value
func DetectValueType(value interface{}) string {
	switch v := value.(type) {
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32:
		return TypeFloat
	case float64:
		// Decoders without UseNumber produce float64 for every number
		if v == float64(int64(v)) {
			return TypeInteger
		}
		return TypeFloat
	case time.Time:
		return TypeTimestamp
	case []byte:
		return TypeBinary
	case string:
		return detectStringType(v)
	case []interface{}:
		return TypeArray
	case map[string]interface{}, models.Record:
		return TypeObject
	default:
		return TypeUnknown
	}
}

func detectStringType(s string) string {
	if uuidPattern.MatchString(s) {
		return TypeUUID
	}
	if len(s) >= 10 && s[4] == '-' {
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return TypeTimestamp
			}
		}
	}
	if _, err := strconv.ParseBool(strings.ToLower(s)); err == nil && len(s) > 1 {
		return TypeBoolean
	}
	return TypeString
}
