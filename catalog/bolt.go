package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/toolmesh/core"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("tools")

// BoltResolver persists tool definitions in a BoltDB file so a catalog
// survives restarts. Definitions are stored as JSON keyed by tool name;
// listing order is therefore lexical by name.
type BoltResolver struct {
	db *bolt.DB
}

// NewBoltResolver opens (or creates) a BoltDB database at path.
func NewBoltResolver(path string) (*BoltResolver, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	// Ensure the bucket exists.
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltResolver{db: db}, nil
}

// Register adds or replaces definitions in a single transaction.
func (b *BoltResolver) Register(_ context.Context, defs ...core.ToolDefinition) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		for _, d := range defs {
			if d.Name == "" {
				return ErrInvalidName
			}
			raw, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", d.Name, err)
			}
			if err := bkt.Put([]byte(d.Name), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns a single definition by name.
func (b *BoltResolver) Get(_ context.Context, name string) (core.ToolDefinition, error) {
	var def core.ToolDefinition
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(name))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &def)
	})
	return def, err
}

// Delete removes a definition by name.
func (b *BoltResolver) Delete(_ context.Context, name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(name)) == nil {
			return ErrNotFound
		}
		return bkt.Delete([]byte(name))
	})
}

// List returns every stored definition.
func (b *BoltResolver) List(_ context.Context) ([]core.ToolDefinition, error) {
	var results []core.ToolDefinition
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			var def core.ToolDefinition
			if err := json.Unmarshal(v, &def); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			results = append(results, def)
			return nil
		})
	})
	return results, err
}

// Resolve implements Resolver.
func (b *BoltResolver) Resolve(ctx context.Context, query string, limit int) ([]core.ToolDefinition, error) {
	all, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	return rank(all, query, limit), nil
}

// Close releases the BoltDB file handle.
func (b *BoltResolver) Close() error {
	return b.db.Close()
}
