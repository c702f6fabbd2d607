package core

// Object kinds reported by the bundled connectors. Connectors may report
// other source-defined kinds.
const (
	ObjectTypeTable      = "table"
	ObjectTypeView       = "view"
	ObjectTypeCollection = "collection"
	ObjectTypePrefix     = "prefix"
	ObjectTypeFile       = "file"
)

// SchemaField describes one field of a SchemaObject. Values are produced by
// connector introspection and are not modified afterwards.
type SchemaField struct {
	Name string `json:"name" yaml:"name"`
	// DataType is the source-native type name (e.g. "varchar", "int", "objectId")
	DataType   string `json:"data_type" yaml:"data_type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey bool   `json:"primary_key" yaml:"primary_key"`
	// ForeignKey references "object.field"; empty when the field has none
	ForeignKey   string      `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	DefaultValue interface{} `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// SchemaObject describes a table, view, collection or similar named object.
// Fields are in introspection order.
type SchemaObject struct {
	Name        string        `json:"name" yaml:"name"`
	Type        string        `json:"type" yaml:"type"`
	Fields      []SchemaField `json:"fields" yaml:"fields"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// Field returns the named field and whether it exists
func (o SchemaObject) Field(name string) (SchemaField, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SchemaField{}, false
}

// PrimaryKeys returns the names of the primary key fields in order
func (o SchemaObject) PrimaryKeys() []string {
	var keys []string
	for _, f := range o.Fields {
		if f.PrimaryKey {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// FindObject returns the object with the given name from an introspection result
func FindObject(objects []SchemaObject, name string) (SchemaObject, bool) {
	for _, o := range objects {
		if o.Name == name {
			return o, true
		}
	}
	return SchemaObject{}, false
}
