// Package deploystore records the code cells deployed by the labs so later
// runs can reference them as cell deps instead of deploying again.
package deploystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/lightningnetwork/lnd/clock"
	bolt "go.etcd.io/bbolt"
)

const (
	// DBFilename is the name of the database file in the data dir.
	DBFilename = "deployments.db"

	dbFilePermission = 0600
)

var (
	// ErrNotFound is returned when no deployment exists under a name.
	ErrNotFound = errors.New("deployment not found")

	// ErrEmptyName is returned when storing a deployment without a name.
	ErrEmptyName = errors.New("deployment name is empty")
)

// Deployment is a code cell created by a deploy transaction.
type Deployment struct {
	// Name identifies the deployment within a network.
	Name string `json:"name"`

	// OutPoint is the code cell.
	OutPoint ckbwire.OutPoint `json:"out_point"`

	// DataHash is the blake2b hash of the binary, the code hash of
	// scripts referencing it with a data hash type.
	DataHash ckbhash.Hash `json:"data_hash"`

	// TypeHash is the hash of the cell's type script, set for type id
	// cells.
	TypeHash *ckbhash.Hash `json:"type_hash,omitempty"`

	// Size is the binary size in bytes.
	Size uint64 `json:"size"`

	// DeployedAt is when the deployment was confirmed.
	DeployedAt time.Time `json:"deployed_at"`
}

// CellDep returns the code dep pointing at the deployment.
func (d *Deployment) CellDep() ckbwire.CellDep {
	return ckbwire.CellDep{OutPoint: d.OutPoint, DepType: ckbwire.DepTypeCode}
}

// Store keeps one bucket of deployments per network.
type Store struct {
	db    *bolt.DB
	clock clock.Clock
}

// Open opens or creates the deployment database in dataDir.
func Open(dataDir string, clk clock.Clock) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, DBFilename)
	db, err := bolt.Open(path, dbFilePermission, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}

	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	log.Debugf("Opened deployment store at %s", path)

	return &Store{db: db, clock: clk}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores d under its name in the network's bucket, replacing an older
// deployment of the same name. A zero DeployedAt is set to now.
func (s *Store) Put(network string, d *Deployment) error {
	if d.Name == "" {
		return ErrEmptyName
	}

	record := *d
	if record.DeployedAt.IsZero() {
		record.DeployedAt = s.clock.Now().UTC()
	}

	value, err := json.Marshal(&record)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(network))
		if err != nil {
			return err
		}

		return bucket.Put([]byte(d.Name), value)
	})
	if err != nil {
		return fmt.Errorf("storing deployment %s: %w", d.Name, err)
	}

	log.Infof("Recorded %s deployment %s at %v", network, d.Name,
		d.OutPoint)

	return nil
}

// Get returns the deployment stored under name.
func (s *Store) Get(network, name string) (*Deployment, error) {
	var d *Deployment
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(network))
		if bucket == nil {
			return ErrNotFound
		}

		value := bucket.Get([]byte(name))
		if value == nil {
			return ErrNotFound
		}

		d = &Deployment{}

		return json.Unmarshal(value, d)
	})
	if err != nil {
		return nil, fmt.Errorf("deployment %s on %s: %w", name, network,
			err)
	}

	return d, nil
}

// List returns the network's deployments ordered by name.
func (s *Store) List(network string) ([]*Deployment, error) {
	var deployments []*Deployment
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(network))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			d := &Deployment{}
			if err := json.Unmarshal(v, d); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			deployments = append(deployments, d)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return deployments, nil
}

// Delete removes the deployment stored under name.
func (s *Store) Delete(network, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(network))
		if bucket == nil || bucket.Get([]byte(name)) == nil {
			return fmt.Errorf("deployment %s on %s: %w", name,
				network, ErrNotFound)
		}

		return bucket.Delete([]byte(name))
	})
}
