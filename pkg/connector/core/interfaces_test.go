package core

import (
	"testing"

	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExtractRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ExtractRequest
		wantErr bool
	}{
		{"object only", ExtractRequest{ObjectName: "customers"}, false},
		{"query only", ExtractRequest{Query: "SELECT 1"}, false},
		{"object with limit", ExtractRequest{ObjectName: "customers", Limit: 10}, false},
		{"neither", ExtractRequest{}, true},
		{"neither with limit", ExtractRequest{Limit: 5}, true},
		{"both", ExtractRequest{Query: "SELECT 1", ObjectName: "customers"}, true},
		{"negative limit", ExtractRequest{ObjectName: "customers", Limit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument), "got %v", err)
		})
	}
}

func TestSchemaObject_Lookups(t *testing.T) {
	obj := SchemaObject{
		Name: "orders",
		Type: ObjectTypeTable,
		Fields: []SchemaField{
			{Name: "tenant_id", DataType: "int", PrimaryKey: true},
			{Name: "id", DataType: "int", PrimaryKey: true},
			{Name: "customer_id", DataType: "int", Nullable: true, ForeignKey: "customers.id"},
		},
	}

	f, ok := obj.Field("customer_id")
	assert.True(t, ok)
	assert.Equal(t, "customers.id", f.ForeignKey)

	_, ok = obj.Field("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"tenant_id", "id"}, obj.PrimaryKeys())

	found, ok := FindObject([]SchemaObject{{Name: "customers"}, obj}, "orders")
	assert.True(t, ok)
	assert.Equal(t, obj.Name, found.Name)
}
