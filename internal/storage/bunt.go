package storage

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"
)

// Storable is anything the bunt database can hold. Records are written
// whole under their Key, there are no partial updates.
type Storable interface {
	Key() string
}

type DB struct {
	bunt *buntdb.DB
}

func NewBunt(file string) *DB {
	bunt, err := buntdb.Open(file)
	if err != nil {
		panic(err)
	}
	return &DB{bunt: bunt}
}

func (db *DB) Set(s Storable) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	err = db.bunt.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(s.Key(), string(raw), nil)
		return err
	})
	if err != nil {
		log.Errorf("[Bunt] could not set object %s: %v", s.Key(), err)
		return err
	}
	log.Tracef("[Bunt] set object %s", s.Key())
	return nil
}

func (db *DB) Get(s Storable) error {
	var raw string
	err := db.bunt.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(s.Key())
		if err != nil {
			return err
		}
		raw = val
		return nil
	})
	if err != nil {
		return err
	}
	log.Tracef("[Bunt] get object %s", s.Key())
	return json.Unmarshal([]byte(raw), s)
}

func (db *DB) Delete(key string) error {
	return db.bunt.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
}

// Exists reports whether a record is present without decoding it.
func (db *DB) Exists(key string) bool {
	err := db.bunt.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(key)
		return err
	})
	return err == nil
}

func (db *DB) Close() error {
	return db.bunt.Close()
}

// NotFound reports whether err came from a missing record.
func NotFound(err error) bool {
	return err == buntdb.ErrNotFound
}
