package mysql

import (
	"context"

	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
)

const objectsQuery = `
	SELECT table_name,
	       CASE WHEN table_type = 'VIEW' THEN 'view' ELSE 'table' END,
	       COALESCE(table_comment, '')
	FROM information_schema.tables
	WHERE table_schema = ?
	ORDER BY table_name`

// columnsQuery reports one row per column; a column in several foreign keys
// references the target of the first constraint by name
const columnsQuery = `
	SELECT c.table_name, c.column_name, c.data_type, c.is_nullable, c.column_default,
	       c.column_key, COALESCE(c.column_comment, ''),
	       COALESCE((
	         SELECT CONCAT(k.referenced_table_name, '.', k.referenced_column_name)
	         FROM information_schema.key_column_usage k
	         WHERE k.table_schema = c.table_schema AND k.table_name = c.table_name
	           AND k.column_name = c.column_name AND k.referenced_table_name IS NOT NULL
	         ORDER BY k.constraint_name
	         LIMIT 1), '')
	FROM information_schema.columns c
	WHERE c.table_schema = ?
	ORDER BY c.table_name, c.ordinal_position`

// GetSchema lists tables and views of the connected database with their
// columns, keys, defaults and comments
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, objectsQuery, c.database)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to query tables")
	}
	var objects []core.SchemaObject
	index := make(map[string]int)
	for rows.Next() {
		var obj core.SchemaObject
		if err := rows.Scan(&obj.Name, &obj.Type, &obj.Description); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to scan table row")
		}
		index[obj.Name] = len(objects)
		objects = append(objects, obj)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "error iterating table rows")
	}

	rows, err = c.db.QueryContext(ctx, columnsQuery, c.database)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to query columns")
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, dataType, nullable, key, description, reference string
		var columnDefault *string
		if err := rows.Scan(&table, &column, &dataType, &nullable, &columnDefault, &key, &description, &reference); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to scan column row")
		}
		i, ok := index[table]
		if !ok {
			continue
		}
		field := core.SchemaField{
			Name:        column,
			DataType:    dataType,
			Nullable:    nullable == "YES",
			PrimaryKey:  key == "PRI",
			ForeignKey:  reference,
			Description: description,
		}
		if columnDefault != nil {
			field.DefaultValue = *columnDefault
		}
		addField(&objects[i], field)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "error iterating column rows")
	}
	return objects, nil
}

// addField appends field unless obj already has a field of that name, in
// which case the first one is kept
func addField(obj *core.SchemaObject, field core.SchemaField) bool {
	for _, f := range obj.Fields {
		if f.Name == field.Name {
			return false
		}
	}
	obj.Fields = append(obj.Fields, field)
	return true
}
