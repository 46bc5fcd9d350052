package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
	"predicacal/internal/schedule"
)

const (
	collLocations   = "locations"
	collConductors  = "conductors"
	collTerritories = "territories"
	collEvents      = "events"

	defaultMongoDatabase = "predicacal"
	mongoConnectTimeout  = 10 * time.Second
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI      string
	Database string
	// Location is the zone start times are presented in; stored
	// timestamps are instants. Nil means UTC.
	Location *time.Location
}

// MongoStore persists records in MongoDB, one collection per kind.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	loc    *time.Location
}

// eventDoc is the stored form of an EventRecord. start_time is kept raw so
// that legacy string timestamps ("2024-07-15T09:00") still load.
type eventDoc struct {
	ID              string        `bson:"_id"`
	Title           string        `bson:"title"`
	StartTime       bson.RawValue `bson:"start_time"`
	LocationID      string        `bson:"location_id,omitempty"`
	ConductorID     string        `bson:"conductor_id,omitempty"`
	TerritoryIDs    []string      `bson:"territory_ids,omitempty"`
	LocationName    string        `bson:"location_name,omitempty"`
	URL             string        `bson:"url,omitempty"`
	ConductorName   string        `bson:"conductor_name,omitempty"`
	TerritoryNumber string        `bson:"territory_number,omitempty"`
	Recurrence      string        `bson:"recurrence,omitempty"`
	CreatedAt       time.Time     `bson:"created_at"`
}

// NewMongoStore connects to cfg.URI and pings the server.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "mongo_uri is required for the mongo storage driver")
	}
	if cfg.Database == "" {
		cfg.Database = defaultMongoDatabase
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	cctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "connect to mongo")
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "ping mongo")
	}

	appLog.Info("mongo store connected", "database", cfg.Database)
	return &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
		loc:    cfg.Location,
	}, nil
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func mongoErr(err error, op string) error {
	return apperr.Wrap(apperr.CodeUnavailable, err, "mongo %s", op)
}

func findAll[T any](ctx context.Context, c *mongo.Collection, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, mongoErr(err, "find "+c.Name())
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err, "decode "+c.Name())
	}
	return out, nil
}

func findOne[T any](ctx context.Context, c *mongo.Collection, kind, id string) (T, error) {
	var v T
	err := c.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return v, notFound(kind, id)
	}
	if err != nil {
		return v, mongoErr(err, "get "+kind)
	}
	return v, nil
}

func deleteOne(ctx context.Context, c *mongo.Collection, kind, id string) error {
	res, err := c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return mongoErr(err, "delete "+kind)
	}
	if res.DeletedCount == 0 {
		return notFound(kind, id)
	}
	return nil
}

func insertOne(ctx context.Context, c *mongo.Collection, kind string, doc any) error {
	if _, err := c.InsertOne(ctx, doc); err != nil {
		return mongoErr(err, "insert "+kind)
	}
	return nil
}

func byName() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
}

func (s *MongoStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	return findAll[model.Location](ctx, s.coll(collLocations), byName())
}

func (s *MongoStore) GetLocation(ctx context.Context, id string) (model.Location, error) {
	return findOne[model.Location](ctx, s.coll(collLocations), "location", id)
}

func (s *MongoStore) CreateLocation(ctx context.Context, l model.Location) (model.Location, error) {
	if l.ID == "" {
		l.ID = newID()
	}
	return l, insertOne(ctx, s.coll(collLocations), "location", l)
}

func (s *MongoStore) DeleteLocation(ctx context.Context, id string) error {
	return deleteOne(ctx, s.coll(collLocations), "location", id)
}

func (s *MongoStore) ListConductors(ctx context.Context) ([]model.Conductor, error) {
	return findAll[model.Conductor](ctx, s.coll(collConductors), byName())
}

func (s *MongoStore) GetConductor(ctx context.Context, id string) (model.Conductor, error) {
	return findOne[model.Conductor](ctx, s.coll(collConductors), "conductor", id)
}

func (s *MongoStore) CreateConductor(ctx context.Context, c model.Conductor) (model.Conductor, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	return c, insertOne(ctx, s.coll(collConductors), "conductor", c)
}

func (s *MongoStore) DeleteConductor(ctx context.Context, id string) error {
	return deleteOne(ctx, s.coll(collConductors), "conductor", id)
}

func (s *MongoStore) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	return findAll[model.Territory](ctx, s.coll(collTerritories), options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
}

func (s *MongoStore) GetTerritory(ctx context.Context, id string) (model.Territory, error) {
	return findOne[model.Territory](ctx, s.coll(collTerritories), "territory", id)
}

func (s *MongoStore) CreateTerritory(ctx context.Context, t model.Territory) (model.Territory, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	return t, insertOne(ctx, s.coll(collTerritories), "territory", t)
}

func (s *MongoStore) DeleteTerritory(ctx context.Context, id string) error {
	return deleteOne(ctx, s.coll(collTerritories), "territory", id)
}

func (s *MongoStore) ListEvents(ctx context.Context) ([]model.EventRecord, error) {
	docs, err := findAll[eventDoc](ctx, s.coll(collEvents), options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]model.EventRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, s.fromDoc(d))
	}
	// Legacy string timestamps sort apart from BSON dates server-side.
	sortEvents(out)
	return out, nil
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (model.EventRecord, error) {
	d, err := findOne[eventDoc](ctx, s.coll(collEvents), "event", id)
	if err != nil {
		return model.EventRecord{}, err
	}
	return s.fromDoc(d), nil
}

func (s *MongoStore) CreateEvent(ctx context.Context, e model.EventRecord) (model.EventRecord, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	doc := bson.D{
		{Key: "_id", Value: e.ID},
		{Key: "title", Value: e.Title},
		{Key: "start_time", Value: e.StartTime.UTC()},
		{Key: "location_id", Value: e.LocationID},
		{Key: "conductor_id", Value: e.ConductorID},
		{Key: "territory_ids", Value: e.TerritoryIDs},
		{Key: "location_name", Value: e.LocationName},
		{Key: "url", Value: e.URL},
		{Key: "conductor_name", Value: e.ConductorName},
		{Key: "territory_number", Value: e.TerritoryNumber},
		{Key: "recurrence", Value: e.Recurrence},
		{Key: "created_at", Value: e.CreatedAt.UTC()},
	}
	return e, insertOne(ctx, s.coll(collEvents), "event", doc)
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	return deleteOne(ctx, s.coll(collEvents), "event", id)
}

// fromDoc converts a stored event, validating its start time. An
// unusable timestamp leaves StartTime zero and keeps the raw value.
func (s *MongoStore) fromDoc(d eventDoc) model.EventRecord {
	rec := model.EventRecord{
		ID:              d.ID,
		Title:           d.Title,
		LocationID:      d.LocationID,
		ConductorID:     d.ConductorID,
		TerritoryIDs:    d.TerritoryIDs,
		LocationName:    d.LocationName,
		URL:             d.URL,
		ConductorName:   d.ConductorName,
		TerritoryNumber: d.TerritoryNumber,
		Recurrence:      d.Recurrence,
		CreatedAt:       d.CreatedAt,
	}
	rec.StartTime, rec.RawStartTime = decodeStartTime(d.StartTime, s.loc)
	return rec
}

func decodeStartTime(v bson.RawValue, loc *time.Location) (time.Time, string) {
	switch v.Type {
	case bson.TypeDateTime:
		return v.Time().In(loc), ""
	case bson.TypeString:
		raw := v.StringValue()
		t, err := schedule.ParseStartTime(raw, loc)
		if err != nil {
			return time.Time{}, raw
		}
		return t, ""
	case 0, bson.TypeNull:
		return time.Time{}, ""
	default:
		return time.Time{}, v.String()
	}
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
