// Package mongodb implements the MongoDB connector. Collections are read
// with find, schemas are inferred from sampled documents and each LoadData
// call inserts its documents inside one session transaction.
package mongodb

import (
	"context"
	"sort"
	"strconv"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the MongoDB connector
const ConnectorType = "mongodb"

// Connector reads from and writes to one MongoDB database
type Connector struct {
	*base.BaseConnector

	uri          string
	databaseName string
	transactions bool
	inferrer     *schema.TypeInferenceEngine

	client   *mongo.Client
	database *mongo.Database
}

// New creates a MongoDB connector. It requires the "connection_string"
// credential and the "database" param. Setting the "transactions" param to
// false allows loading into standalone servers, without atomic batches.
func New(cfg *config.ConnectorConfig) (*Connector, error) {
	c := &Connector{BaseConnector: base.NewBaseConnector(ConnectorType, cfg)}
	cfg = c.GetConfig()

	c.uri = cfg.Credential("connection_string", "")
	c.databaseName = cfg.Param("database", "")
	if c.uri == "" || c.databaseName == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mongodb: connection_string and database are required")
	}

	tx, err := strconv.ParseBool(cfg.Param("transactions", "true"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "mongodb: invalid transactions param")
	}
	c.transactions = tx
	c.inferrer = schema.NewTypeInferenceEngine(c.GetLogger(), "_id")
	return c, nil
}

// Connect creates the client and pings the primary
func (c *Connector) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	cfg := c.GetConfig()
	clientOpts := options.Client().
		ApplyURI(c.uri).
		SetMaxPoolSize(uint64(cfg.Performance.MaxConnections)).
		SetMaxConnIdleTime(cfg.Timeouts.Idle).
		SetConnectTimeout(cfg.Timeouts.Connection)

	ctx, cancel := c.ConnectContext(ctx)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create MongoDB client")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB")
	}

	c.client = client
	c.database = client.Database(c.databaseName)
	c.MarkConnected()
	c.GetLogger().Info("connected to MongoDB",
		zap.String("database", c.databaseName),
		zap.Bool("transactions", c.transactions))
	return nil
}

// Disconnect closes the client
func (c *Connector) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client, c.database = nil, nil
	c.MarkDisconnected()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to disconnect from MongoDB")
	}
	return nil
}

// GetSchema lists collections and views, inferring fields from a sample
// of Performance.SampleSize documents each
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	specs, err := c.database.ListCollectionSpecifications(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to list collections")
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	sampleSize := int64(c.GetConfig().Performance.SampleSize)
	objects := make([]core.SchemaObject, 0, len(specs))
	for _, spec := range specs {
		samples, err := c.find(ctx, spec.Name, bson.D{}, sampleSize)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to sample collection "+spec.Name)
		}

		objectType := core.ObjectTypeCollection
		if spec.Type == "view" {
			objectType = core.ObjectTypeView
		}
		objects = append(objects, c.inferrer.InferObject(spec.Name, objectType, samples))
	}
	return objects, nil
}

// ExtractData reads a collection, or runs a find query written as extended
// JSON: {"find": "<collection>", "filter": {...}}
func (c *Connector) ExtractData(ctx context.Context, req core.ExtractRequest) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}

	collection, filter := req.ObjectName, interface{}(bson.D{})
	if req.Query != "" {
		q, err := parseQuery(req.Query)
		if err != nil {
			return nil, err
		}
		collection, filter = q.collection, q.filter
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	records, err := c.find(ctx, collection, filter, int64(req.Limit))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read collection "+collection)
	}
	return records, nil
}

func (c *Connector) find(ctx context.Context, collection string, filter interface{}, limit int64) ([]models.Record, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := c.database.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, toRecord(doc))
	}
	return records, cursor.Err()
}

// LoadData inserts records into the target collection. With transactions
// enabled the insert is all-or-nothing.
func (c *Connector) LoadData(ctx context.Context, target string, records []models.Record) (int, error) {
	if !c.IsConnected() {
		return 0, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = map[string]interface{}(r)
	}
	coll := c.database.Collection(target)

	if !c.transactions {
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to insert into "+target)
		}
		return len(res.InsertedIDs), nil
	}

	session, err := c.client.StartSession()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to start session")
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	inserted, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := coll.InsertMany(sc, docs)
		if err != nil {
			return 0, err
		}
		return len(res.InsertedIDs), nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "load into "+target+" rolled back")
	}
	return inserted.(int), nil
}

// toRecord converts a decoded document into plain Go values
func toRecord(doc bson.M) models.Record {
	rec := make(models.Record, len(doc))
	for k, v := range doc {
		rec[k] = convertValue(v)
	}
	return rec
}

func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Decimal128:
		return v.String()
	case primitive.Binary:
		return v.Data
	case bson.M:
		return map[string]interface{}(toRecord(v))
	case bson.D:
		m := make(map[string]interface{}, len(v))
		for _, e := range v {
			m[e.Key] = convertValue(e.Value)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = convertValue(item)
		}
		return out
	default:
		return v
	}
}

type findQuery struct {
	collection string
	filter     interface{}
}

func parseQuery(query string) (findQuery, error) {
	var doc bson.M
	if err := bson.UnmarshalExtJSON([]byte(query), false, &doc); err != nil {
		return findQuery{}, errors.Wrap(err, errors.ErrorTypeInvalidArgument, "query must be an extended JSON document")
	}

	collection, _ := doc["find"].(string)
	if collection == "" {
		return findQuery{}, errors.New(errors.ErrorTypeInvalidArgument, `query requires a "find" collection name`)
	}

	var filter interface{} = bson.D{}
	if f, ok := doc["filter"]; ok && f != nil {
		filter = f
	}
	return findQuery{collection: collection, filter: filter}, nil
}
