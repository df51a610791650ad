// Package storage persists the per-peer election inputs: the last logged
// transaction id, and the current and accepted epochs. These survive process
// restarts so a rejoining peer proposes an honest view of its log.
package storage

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	peerStateBucket = []byte("peerstate")

	lastLoggedZxidKey = []byte("lastLoggedZxid")
	currentEpochKey   = []byte("currentEpoch")
	acceptedEpochKey  = []byte("acceptedEpoch")
)

// BoltStore is a bbolt-backed store for the peer's persistent election state.
type BoltStore struct {
	conn *bbolt.DB
}

// NewBoltStore opens (or creates) the store at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(peerStateBucket); err != nil {
			return fmt.Errorf("failed to create peerstate bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{conn: db}, nil
}

// LastLoggedZxid returns the last transaction id in the local log, or 0 when
// nothing has been logged yet.
func (s *BoltStore) LastLoggedZxid() (int64, error) {
	return s.getInt64(lastLoggedZxidKey)
}

// SetLastLoggedZxid persists the last logged transaction id.
func (s *BoltStore) SetLastLoggedZxid(zxid int64) error {
	return s.putInt64(lastLoggedZxidKey, zxid)
}

// CurrentEpoch returns the current epoch, or 0 on a fresh store.
func (s *BoltStore) CurrentEpoch() (int64, error) {
	return s.getInt64(currentEpochKey)
}

// SetCurrentEpoch persists the current epoch.
func (s *BoltStore) SetCurrentEpoch(epoch int64) error {
	return s.putInt64(currentEpochKey, epoch)
}

// AcceptedEpoch returns the accepted epoch, or 0 on a fresh store.
func (s *BoltStore) AcceptedEpoch() (int64, error) {
	return s.getInt64(acceptedEpochKey)
}

// SetAcceptedEpoch persists the accepted epoch.
func (s *BoltStore) SetAcceptedEpoch(epoch int64) error {
	return s.putInt64(acceptedEpochKey, epoch)
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.conn.Close()
}

func (s *BoltStore) getInt64(key []byte) (int64, error) {
	var value int64
	err := s.conn.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(peerStateBucket).Get(key)
		if data == nil {
			value = 0
			return nil
		}
		if len(data) != 8 {
			return fmt.Errorf("corrupt value for key %q: %d bytes", key, len(data))
		}
		value = int64(binary.BigEndian.Uint64(data))
		return nil
	})
	return value, err
}

func (s *BoltStore) putInt64(key []byte, value int64) error {
	return s.conn.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(value))
		return tx.Bucket(peerStateBucket).Put(key, buf)
	})
}
