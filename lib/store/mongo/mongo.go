// Package mongo implements the store interface for MongoDB.
package mongo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/util"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// mongoAddress is the document form of a watched address.
type mongoAddress struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name,omitempty" bson:"name,omitempty"`
	Addr string             `json:"address" bson:"address"`
}

// Address converts a mongoAddress to store.WatchedAddress type.
func (a mongoAddress) Address() store.WatchedAddress {
	return store.WatchedAddress{ID: a.ID[:], Addr: a.Addr, Name: a.Name}
}

// mongoSecret is the document form of a keychain entry.
type mongoSecret struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	err = c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

// AddWatch saves a watched address if the address does not already exist.
func (m *Mongo) AddWatch(a store.WatchedAddress, net string) ([]byte, error) {
	var ma mongoAddress
	ma.Addr = a.Addr

	col := m.c.Database("watch").Collection(net)

	// try and find it
	filter := bson.M{"address": a.Addr}
	sr := col.FindOne(context.Background(), filter)

	err := sr.Decode(&ma)
	if errors.Is(err, mgo.ErrNoDocuments) { // if not found, do insert it!!
		res, errIns := col.InsertOne(context.Background(), bson.M{"name": ma.Name, "address": ma.Addr})
		if errIns != nil {
			return nil, fmt.Errorf("could not insert watched address in db: %w", errIns)
		}

		return hex.DecodeString(res.InsertedID.(primitive.ObjectID).Hex())
	}

	if err != nil {
		return nil, fmt.Errorf("could not insert watched address in db: %w", err)
	}

	log.Printf("[%s] Address was already watched:%+v\n", net, ma)

	return hex.DecodeString(ma.ID.Hex())
}

// RemoveWatch deletes a watched address from the database.
func (m *Mongo) RemoveWatch(a store.WatchedAddress, net string) error {
	col := m.c.Database("watch").Collection(net)

	filter := bson.M{"address": a.Addr}

	res, err := col.DeleteOne(context.Background(), filter)
	if err == nil && res.DeletedCount != 1 {
		err = store.ErrWatchNotFound
	}

	return err
}

// GetWatches returns the addresses monitored for the networks indicated in
// the net slice, or for all networks when the slice is empty.
func (m *Mongo) GetWatches(net []string) ([]store.WatchList, error) {
	cols, err := m.c.Database("watch").ListCollections(context.Background(), bson.D{})
	if err != nil {
		return nil, fmt.Errorf("error getting mongo DB object: %w", err)
	}

	watches := []store.WatchList{}

	for cols.Next(context.Background()) {
		col := cols.Current.Lookup("name").String()
		col = col[1 : len(col)-1]

		if len(net) == 0 || util.In(net, col) {
			var wl store.WatchList
			// get the addresses
			docs, err := m.c.Database("watch").Collection(col).Find(context.TODO(), bson.M{})
			if err == nil {
				wl.Net = col

				for docs.Next(context.Background()) {
					var a mongoAddress
					if err = bson.Unmarshal(docs.Current, &a); err == nil {
						wl.Addr = append(wl.Addr, a.Address())
					}
				}
			}

			watches = append(watches, wl)
		}
	}

	return watches, nil
}

// LoadWatcher loads from db the scan state for the indicated blockchain.
func (m *Mongo) LoadWatcher(net string) (ws store.WatcherState, err error) {
	sr := m.c.Database("wstate").Collection(net).FindOne(context.TODO(), bson.D{})
	if err = sr.Decode(&ws); errors.Is(err, mgo.ErrNoDocuments) {
		err = store.ErrDataNotFound
	}

	return
}

// SaveWatcher saves to db the scan state for the indicated blockchain.
func (m *Mongo) SaveWatcher(net string, ws store.WatcherState) (err error) {
	_, err = m.c.Database("wstate").Collection(net).UpdateOne(context.Background(),
		bson.D{}, // filter
		bson.D{ // update
			{
				Key: "$set", Value: bson.D{
					{Key: "block", Value: ws.Block},
					{Key: "bh", Value: ws.Bh},
					{Key: "bhi", Value: ws.Bhi},
					{Key: "map", Value: ws.Map},
				},
			},
		},
		options.Update().SetUpsert(true))

	return
}

// PutSecret upserts a keychain entry.
func (m *Mongo) PutSecret(ctx context.Context, keychainID, key, value string) error {
	_, err := m.c.Database("keychain").Collection(keychainID).UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"key": key, "value": value}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not store keychain entry: %w", err)
	}

	return nil
}

// GetSecret returns the value of a keychain entry.
func (m *Mongo) GetSecret(ctx context.Context, keychainID, key string) (string, error) {
	var s mongoSecret

	sr := m.c.Database("keychain").Collection(keychainID).FindOne(ctx, bson.M{"key": key})
	if err := sr.Decode(&s); err != nil {
		if errors.Is(err, mgo.ErrNoDocuments) {
			return "", store.ErrSecretNotFound
		}

		return "", fmt.Errorf("could not read keychain entry: %w", err)
	}

	return s.Value, nil
}

// HasSecret reports whether a keychain entry exists.
func (m *Mongo) HasSecret(ctx context.Context, keychainID, key string) (bool, error) {
	_, err := m.GetSecret(ctx, keychainID, key)
	if errors.Is(err, store.ErrSecretNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// DeleteSecret removes a keychain entry.
func (m *Mongo) DeleteSecret(ctx context.Context, keychainID, key string) error {
	res, err := m.c.Database("keychain").Collection(keychainID).DeleteOne(ctx, bson.M{"key": key})
	if err == nil && res.DeletedCount != 1 {
		err = store.ErrSecretNotFound
	}

	return err
}
