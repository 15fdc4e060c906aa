package store

import (
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"cipherline/internal/domain"
)

const (
	boltFilename        = "conversations.db"
	conversationsBucket = "conversations"
	metadataBucket      = "metadata"
	versionKey          = "version"
	boltSchemaVersion   = 0
)

// RatchetBoltStore persists per-peer serialized Double-Ratchet state in a
// bbolt database. Each save is one transaction, so a crash never leaves a
// half-written conversation behind.
type RatchetBoltStore struct {
	db *bolt.DB
}

// OpenRatchetBoltStore creates or opens the database under dir.
func OpenRatchetBoltStore(dir string) (*RatchetBoltStore, error) {
	db, err := bolt.Open(filepath.Join(dir, boltFilename), 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(conversationsBucket)); err != nil {
			return err
		}
		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != boltSchemaVersion {
				return fmt.Errorf("store: incompatible conversation database version: %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{boltSchemaVersion})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &RatchetBoltStore{db: db}, nil
}

// SaveConversation writes the Conversation for peer.
func (s *RatchetBoltStore) SaveConversation(peer domain.ConversationID, conv domain.Conversation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(conversationsBucket)).Put([]byte(peer), conv.State)
	})
}

// LoadConversation retrieves the Conversation for peer.
func (s *RatchetBoltStore) LoadConversation(peer domain.ConversationID) (domain.Conversation, bool, error) {
	var conv domain.Conversation
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(conversationsBucket)).Get([]byte(peer))
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction.
		conv = domain.Conversation{Peer: peer, State: append([]byte(nil), v...)}
		found = true
		return nil
	})
	return conv, found, err
}

// Close flushes and closes the database.
func (s *RatchetBoltStore) Close() error {
	if err := s.db.Sync(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

// Compile-time assertion that RatchetBoltStore implements domain.RatchetStore.
var _ domain.RatchetStore = (*RatchetBoltStore)(nil)
