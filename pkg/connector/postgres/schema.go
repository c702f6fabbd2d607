package postgres

import (
	"context"

	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"go.uber.org/zap"
)

const objectsQuery = `
	SELECT c.relname,
	       CASE WHEN c.relkind IN ('v', 'm') THEN 'view' ELSE 'table' END,
	       COALESCE(obj_description(c.oid, 'pg_class'), '')
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
	ORDER BY c.relname`

const columnsQuery = `
	SELECT c.table_name, c.column_name, c.data_type, c.is_nullable, c.column_default,
	       COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position), '')
	FROM information_schema.columns c
	WHERE c.table_schema = $1
	ORDER BY c.table_name, c.ordinal_position`

const keysQuery = `
	SELECT tc.table_name, kcu.column_name, tc.constraint_type,
	       COALESCE(ccu.table_name || '.' || ccu.column_name, '')
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	LEFT JOIN information_schema.constraint_column_usage ccu
	  ON tc.constraint_type = 'FOREIGN KEY'
	 AND ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
	WHERE tc.table_schema = $1 AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')`

type keyInfo struct {
	primary    bool
	foreignKey string
}

// GetSchema lists the tables and views of the configured schema with their
// columns, keys, defaults and comments
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	objects, index, err := c.loadObjects(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := c.loadKeys(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx, columnsQuery, c.schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to query columns")
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, dataType, nullable, description string
		var columnDefault *string
		if err := rows.Scan(&table, &column, &dataType, &nullable, &columnDefault, &description); err != nil {
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
			Description: description,
		}
		if columnDefault != nil {
			field.DefaultValue = *columnDefault
		}
		if k, ok := keys[table+"."+column]; ok {
			field.PrimaryKey = k.primary
			field.ForeignKey = k.foreignKey
		}
		objects[i].Fields = append(objects[i].Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "error iterating column rows")
	}

	c.GetLogger().Debug("discovered schema",
		zap.String("schema", c.schema),
		zap.Int("objects", len(objects)))
	return objects, nil
}

func (c *Connector) loadObjects(ctx context.Context) ([]core.SchemaObject, map[string]int, error) {
	rows, err := c.pool.Query(ctx, objectsQuery, c.schema)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to query tables")
	}
	defer rows.Close()

	var objects []core.SchemaObject
	index := make(map[string]int)
	for rows.Next() {
		var obj core.SchemaObject
		if err := rows.Scan(&obj.Name, &obj.Type, &obj.Description); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to scan table row")
		}
		index[obj.Name] = len(objects)
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "error iterating table rows")
	}
	return objects, index, nil
}

func (c *Connector) loadKeys(ctx context.Context) (map[string]keyInfo, error) {
	rows, err := c.pool.Query(ctx, keysQuery, c.schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to query key constraints")
	}
	defer rows.Close()

	keys := make(map[string]keyInfo)
	for rows.Next() {
		var table, column, constraintType, reference string
		if err := rows.Scan(&table, &column, &constraintType, &reference); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to scan key row")
		}
		k := keys[table+"."+column]
		switch constraintType {
		case "PRIMARY KEY":
			k.primary = true
		case "FOREIGN KEY":
			k.foreignKey = reference
		}
		keys[table+"."+column] = k
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "error iterating key rows")
	}
	return keys, nil
}
