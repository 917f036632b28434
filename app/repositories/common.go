package repositories

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	AuthorKeyPrefix  = "author:"
	PostKeyPrefix    = "post:"
	TagKeyPrefix     = "tag:"
	CommentKeyPrefix = "comment:"
	LikeKeyPrefix    = "like:"

	// Membership index in both directions: post_tag:<post>:<tag> and tag_post:<tag>:<post>
	PostTagKeyPrefix = "post_tag:"
	TagPostKeyPrefix = "tag_post:"

	// Unique key index: unique:<entity>:<key> holds the owning row id
	UniqueKeyPrefix = "unique:"

	// Sequence keys for auto-incrementing IDs
	AuthorSeqKey  = "seq:author"
	PostSeqKey    = "seq:post"
	TagSeqKey     = "seq:tag"
	CommentSeqKey = "seq:comment"
	LikeSeqKey    = "seq:like"
)

// entityKey builds a key whose lexical order matches numeric id order.
func entityKey(prefix string, id uint) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefix, id))
}

// pairKey builds a membership key under prefix for (owner, member).
func pairKey(prefix string, owner, member uint) []byte {
	return []byte(fmt.Sprintf("%s%010d:%010d", prefix, owner, member))
}

// pairPrefix is the iteration prefix for every member of owner.
func pairPrefix(prefix string, owner uint) []byte {
	return []byte(fmt.Sprintf("%s%010d:", prefix, owner))
}

// pairMember extracts the member id from a key built by pairKey.
func pairMember(key []byte, prefix []byte) (uint, error) {
	id, err := strconv.ParseUint(string(key[len(prefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed membership key %q: %v", key, err)
	}
	return uint(id), nil
}

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (uint, error) {
	var id uint
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, err
	} else {
		err = item.Value(func(val []byte) error {
			id = uint(val[0])<<24 | uint(val[1])<<16 | uint(val[2])<<8 | uint(val[3])
			return nil
		})
		if err != nil {
			return 0, err
		}
		id++
	}

	// Store new ID
	idBytes := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	if err := txn.Set([]byte(seqKey), idBytes); err != nil {
		return 0, err
	}

	return id, nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %v", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %v", err)
	}
	return nil
}
