package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/food-ordering/internal/models"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}
	d128, err := primitive.ParseDecimal128(val.Interface().(decimal.Decimal).String())
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(d128)
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch vr.Type() {
	case bsontype.Decimal128:
		var d128 primitive.Decimal128
		if d128, err = vr.ReadDecimal128(); err == nil {
			d, err = decimal.NewFromString(d128.String())
		}
	case bsontype.Double:
		var f float64
		if f, err = vr.ReadDouble(); err == nil {
			d = decimal.NewFromFloat(f)
		}
	case bsontype.Int32:
		var i int32
		if i, err = vr.ReadInt32(); err == nil {
			d = decimal.NewFromInt32(i)
		}
	case bsontype.Int64:
		var i int64
		if i, err = vr.ReadInt64(); err == nil {
			d = decimal.NewFromInt(i)
		}
	case bsontype.String:
		var s string
		if s, err = vr.ReadString(); err == nil {
			d, err = decimal.NewFromString(s)
		}
	case bsontype.Null:
		err = vr.ReadNull()
	default:
		return fmt.Errorf("cannot decode %v into decimal", vr.Type())
	}
	if err != nil {
		return err
	}
	val.Set(reflect.ValueOf(d))
	return nil
}

// newRegistry stores decimals as BSON Decimal128.
func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return reg
}

type MongoStore struct {
	client      *mongo.Client
	orders      *mongo.Collection
	restaurants *mongo.Collection
	menu        *mongo.Collection
	users       *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(newRegistry()))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(dbName)
	s := &MongoStore{
		client:      client,
		orders:      db.Collection("orders"),
		restaurants: db.Collection("restaurants"),
		menu:        db.Collection("menu_items"),
		users:       db.Collection("users"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("orders index: %w", err)
	}
	if _, err := s.menu.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "restaurant_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("menu index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *MongoStore) Close() error { return s.client.Disconnect(context.Background()) }

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.D) (*T, error) {
	var v T
	if err := c.FindOne(ctx, filter).Decode(&v); err != nil {
		return nil, mongoErr(err)
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.D, sort bson.D) ([]*T, error) {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	var vals []T
	if err := cur.All(ctx, &vals); err != nil {
		return nil, err
	}
	out := make([]*T, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out, nil
}

func replace(ctx context.Context, c *mongo.Collection, id string, doc any, upsert bool) error {
	res, err := c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, options.Replace().SetUpsert(upsert))
	if err != nil {
		return mongoErr(err)
	}
	if !upsert && res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveOrder(ctx context.Context, o *models.Order) error {
	_, err := s.orders.InsertOne(ctx, o)
	return mongoErr(err)
}

func (s *MongoStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	return replace(ctx, s.orders, o.ID, o, false)
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](ctx, s.orders, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return findAll[models.Order](ctx, s.orders, bson.D{{Key: "user_id", Value: userID}}, bson.D{{Key: "created_at", Value: -1}})
}

func (s *MongoStore) ListOrdersByRestaurant(ctx context.Context, restaurantID string, status models.Status) ([]*models.Order, error) {
	filter := bson.D{{Key: "restaurant_id", Value: restaurantID}}
	if status != "" {
		filter = append(filter, bson.E{Key: "status", Value: status})
	}
	return findAll[models.Order](ctx, s.orders, filter, bson.D{{Key: "created_at", Value: -1}})
}

func (s *MongoStore) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	return replace(ctx, s.restaurants, r.ID, r, true)
}

func (s *MongoStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return findOne[models.Restaurant](ctx, s.restaurants, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) ListRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	return findAll[models.Restaurant](ctx, s.restaurants, bson.D{}, bson.D{{Key: "name", Value: 1}})
}

func (s *MongoStore) SaveMenuItem(ctx context.Context, m *models.MenuItem) error {
	return replace(ctx, s.menu, m.ID, m, true)
}

func (s *MongoStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	return findOne[models.MenuItem](ctx, s.menu, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) ListMenuItems(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	return findAll[models.MenuItem](ctx, s.menu, bson.D{{Key: "restaurant_id", Value: restaurantID}},
		bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	c := *u
	c.Email = strings.ToLower(c.Email)
	_, err := s.users.InsertOne(ctx, &c)
	return mongoErr(err)
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *models.User) error {
	c := *u
	c.Email = strings.ToLower(c.Email)
	return replace(ctx, s.users, u.ID, &c, false)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, bson.D{{Key: "email", Value: strings.ToLower(email)}})
}
