package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/hostkeeper/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketServers      = []byte("servers")
	bucketTeams        = []byte("teams")
	bucketApplications = []byte("applications")
	bucketDatabases    = []byte("databases")
	bucketServices     = []byte("services")
	bucketPreviews     = []byte("previews")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) <dataDir>/hostkeeper.db
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "hostkeeper.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketServers,
			bucketTeams,
			bucketApplications,
			bucketDatabases,
			bucketServices,
			bucketPreviews,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func put(tx *bolt.Tx, bucket []byte, id string, v any) error {
	if id == "" {
		return fmt.Errorf("empty id for %s record", bucket)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put([]byte(id), data)
}

func get[T any](tx *bolt.Tx, bucket []byte, id string) (*T, error) {
	data := tx.Bucket(bucket).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%s %s: %w", bucket, id, ErrNotFound)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// list decodes every record of bucket accepted by keep, in key order
func list[T any](db *bolt.DB, bucket []byte, keep func(*T) bool) ([]*T, error) {
	var out []*T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, data []byte) error {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			if keep == nil || keep(&v) {
				out = append(out, &v)
			}
			return nil
		})
	})
	return out, err
}

// Server operations
func (s *BoltStore) CreateServer(server *types.Server) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketServers, server.ID, server)
	})
}

func (s *BoltStore) GetServer(id string) (*types.Server, error) {
	var server *types.Server
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		server, err = get[types.Server](tx, bucketServers, id)
		return err
	})
	return server, err
}

func (s *BoltStore) ListServers() ([]*types.Server, error) {
	return list[types.Server](s.db, bucketServers, nil)
}

func (s *BoltStore) UpdateServer(server *types.Server) error {
	return s.CreateServer(server) // upsert
}

// DeleteServer removes the server and every inventory resource declared on it
func (s *BoltStore) DeleteServer(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketApplications, bucketDatabases, bucketServices, bucketPreviews} {
			if err := deleteByServer(tx, bucket, id); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketServers).Delete([]byte(id))
	})
}

func deleteByServer(tx *bolt.Tx, bucket []byte, serverID string) error {
	b := tx.Bucket(bucket)
	var doomed [][]byte
	err := b.ForEach(func(k, data []byte) error {
		var owner struct{ ServerID string }
		if err := json.Unmarshal(data, &owner); err != nil {
			return fmt.Errorf("failed to decode %s/%s: %w", bucket, k, err)
		}
		if owner.ServerID == serverID {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range doomed {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) UpdateProxyStatus(serverID, status string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		server, err := get[types.Server](tx, bucketServers, serverID)
		if err != nil {
			return err
		}
		server.Proxy.Status = status
		server.UpdatedAt = time.Now()
		return put(tx, bucketServers, server.ID, server)
	})
}

// Team operations
func (s *BoltStore) CreateTeam(team *types.Team) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketTeams, team.ID, team)
	})
}

func (s *BoltStore) GetTeam(id string) (*types.Team, error) {
	var team *types.Team
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		team, err = get[types.Team](tx, bucketTeams, id)
		return err
	})
	return team, err
}

func (s *BoltStore) ListTeams() ([]*types.Team, error) {
	return list[types.Team](s.db, bucketTeams, nil)
}

// Inventory operations
func (s *BoltStore) CreateApplication(app *types.Application) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketApplications, app.ID, app)
	})
}

func (s *BoltStore) ListApplications(serverID string) ([]*types.Application, error) {
	return list(s.db, bucketApplications, func(a *types.Application) bool { return a.ServerID == serverID })
}

func (s *BoltStore) CreateDatabase(db *types.Database) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketDatabases, db.ID, db)
	})
}

func (s *BoltStore) ListDatabases(serverID string) ([]*types.Database, error) {
	return list(s.db, bucketDatabases, func(d *types.Database) bool { return d.ServerID == serverID })
}

func (s *BoltStore) CreateService(svc *types.Service) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketServices, svc.ID, svc)
	})
}

func (s *BoltStore) ListServices(serverID string) ([]*types.Service, error) {
	return list(s.db, bucketServices, func(svc *types.Service) bool { return svc.ServerID == serverID })
}

func (s *BoltStore) CreatePreview(preview *types.Preview) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketPreviews, preview.ID, preview)
	})
}

func (s *BoltStore) ListPreviews(serverID string) ([]*types.Preview, error) {
	return list(s.db, bucketPreviews, func(p *types.Preview) bool { return p.ServerID == serverID })
}

func (s *BoltStore) UpdateResourceStatus(kind types.ResourceKind, id, status string) error {
	now := time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		switch kind {
		case types.ResourceApplication:
			return updateStatus[types.Application](tx, bucketApplications, id, func(a *types.Application) {
				a.Status, a.StatusUpdatedAt = status, now
			})
		case types.ResourceDatabase:
			return updateStatus[types.Database](tx, bucketDatabases, id, func(d *types.Database) {
				d.Status, d.StatusUpdatedAt = status, now
			})
		case types.ResourceService:
			return updateStatus[types.Service](tx, bucketServices, id, func(svc *types.Service) {
				svc.Status, svc.StatusUpdatedAt = status, now
			})
		case types.ResourcePreview:
			return updateStatus[types.Preview](tx, bucketPreviews, id, func(p *types.Preview) {
				p.Status, p.StatusUpdatedAt = status, now
			})
		default:
			return fmt.Errorf("unknown resource kind: %s", kind)
		}
	})
}

func updateStatus[T any](tx *bolt.Tx, bucket []byte, id string, set func(*T)) error {
	v, err := get[T](tx, bucket, id)
	if err != nil {
		return err
	}
	set(v)
	return put(tx, bucket, id, v)
}
