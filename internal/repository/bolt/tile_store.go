// Package bolt keeps offline tiles in a single bbolt file, one bucket per style.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/domain/repository"
)

// TileStore implements repository.TileStore using BoltDB.
type TileStore struct {
	db     *bbolt.DB
	logger *zap.Logger
}

var _ repository.TileStore = (*TileStore)(nil)

var styles = []domain.TileStyle{domain.TileStyleStandard, domain.TileStyleSatellite, domain.TileStyleHybrid}

// NewTileStore открывает (или создает) файл хранилища и бакеты стилей
func NewTileStore(path string, logger *zap.Logger) (*TileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create tile store dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, style := range styles {
			if _, err := tx.CreateBucketIfNotExists([]byte(style)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tile buckets: %w", err)
	}

	logger.Info("Offline tile store opened", zap.String("path", path))

	return &TileStore{db: db, logger: logger}, nil
}

func (s *TileStore) Close() error {
	return s.db.Close()
}

// tileKey - z, x, y в big-endian: ключи одного зума лежат рядом и сортируются по x, затем y
func tileKey(tile domain.TileIndex) []byte {
	key := make([]byte, 9)
	key[0] = byte(tile.Z)
	binary.BigEndian.PutUint32(key[1:5], uint32(tile.X))
	binary.BigEndian.PutUint32(key[5:9], uint32(tile.Y))
	return key
}

func (s *TileStore) GetTile(_ context.Context, style domain.TileStyle, tile domain.TileIndex) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(style))
		if b == nil {
			return fmt.Errorf("unknown tile style %q", style)
		}
		if v := b.Get(tileKey(tile)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *TileStore) SetTile(_ context.Context, style domain.TileStyle, tile domain.TileIndex, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(style))
		if b == nil {
			return fmt.Errorf("unknown tile style %q", style)
		}
		return b.Put(tileKey(tile), data)
	})
	if err != nil {
		s.logger.Error("Failed to store tile",
			zap.String("style", string(style)),
			zap.Int("z", tile.Z), zap.Int("x", tile.X), zap.Int("y", tile.Y),
			zap.Error(err))
		return fmt.Errorf("store tile: %w", err)
	}
	return nil
}

func (s *TileStore) HasTile(_ context.Context, style domain.TileStyle, tile domain.TileIndex) (bool, error) {
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(style))
		if b == nil {
			return fmt.Errorf("unknown tile style %q", style)
		}
		found = b.Get(tileKey(tile)) != nil
		return nil
	})
	return found, err
}

// CountZoom returns how many tiles of the style are stored at zoom z.
func (s *TileStore) CountZoom(style domain.TileStyle, z int) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(style))
		if b == nil {
			return fmt.Errorf("unknown tile style %q", style)
		}
		c := b.Cursor()
		prefix := []byte{byte(z)}
		for k, _ := c.Seek(prefix); k != nil && k[0] == prefix[0]; k, _ = c.Next() {
			count++
		}
		return nil
	})
	return count, err
}
