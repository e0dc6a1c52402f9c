package orders

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	v1 "github.com/christianberko/orobor-website/api/v1"
)

var keyPrefix = []byte("order:")

// Store appends order records to the embedded database. Inserts are
// append-only: duplicate tracking numbers are not deduplicated, since
// carrier retries can legitimately produce more than one order for the
// same tracking number.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Save derives a record from the request and label and appends it.
func (s *Store) Save(req *v1.ShipmentRequest, label v1.LabelResult) (v1.OrderRecord, error) {
	record := NewRecord(req, label)

	data, err := json.Marshal(record)
	if err != nil {
		return v1.OrderRecord{}, fmt.Errorf("save order: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(append([]byte{}, keyPrefix...), record.ID...), data)
	})
	if err != nil {
		return v1.OrderRecord{}, fmt.Errorf("save order: %w", err)
	}
	return record, nil
}

// List returns every stored order record.
func (s *Store) List() ([]v1.OrderRecord, error) {
	records := []v1.OrderRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record v1.OrderRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return records, nil
}
