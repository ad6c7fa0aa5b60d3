package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

type BBolt struct {
	db *bbolt.DB
}

const (
	bboltADHatBucket   = "adhat"
	bboltSamplesBucket = "samples" // child of adhat

	// adhat keys
	bboltAcquisitionConfigKey = "acquisition-config"
)

// OpenBBolt opens a BBoltDB database at the given path and creates the needed
// buckets if they don't exist.
func OpenBBolt(path string, mode os.FileMode, options *bbolt.Options) (Store, error) {
	db, err := bbolt.Open(path, mode, options)
	if err != nil {
		return nil, fmt.Errorf("unable to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		adhatBucket, err := tx.CreateBucketIfNotExists([]byte(bboltADHatBucket))
		if err != nil {
			return fmt.Errorf("unable to create bucket %q: %w", bboltADHatBucket, err)
		}

		_, err = adhatBucket.CreateBucketIfNotExists([]byte(bboltSamplesBucket))
		if err != nil {
			return fmt.Errorf("unable to create bucket %q: %w", bboltSamplesBucket, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create bbolt buckets: %w", err)
	}

	return &BBolt{
		db: db,
	}, nil
}

func (b *BBolt) Close() error {
	return b.db.Close()
}

func (b *BBolt) AcquisitionConfig() (AcquisitionConfig, error) {
	var c AcquisitionConfig
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bboltADHatBucket))

		configJSON := bucket.Get([]byte(bboltAcquisitionConfigKey))
		if configJSON == nil {
			return fmt.Errorf("acquisition config does not exist")
		}

		if err := json.Unmarshal(configJSON, &c); err != nil {
			return fmt.Errorf("unable to unmarshal acquisition config JSON: %w", err)
		}

		return nil
	})
	if err != nil {
		return c, fmt.Errorf("unable to get acquisition config: %w", err)
	}

	return c, nil
}

func (b *BBolt) PutAcquisitionConfig(c AcquisitionConfig) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		configJSON, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("unable to marshal acquisition config: %w", err)
		}

		bucket := tx.Bucket([]byte(bboltADHatBucket))
		if err := bucket.Put([]byte(bboltAcquisitionConfigKey), configJSON); err != nil {
			return fmt.Errorf("unable to put acquisition config: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to update acquisition config: %w", err)
	}

	return nil
}

func (b *BBolt) PutSample(s Sample) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		sampleJSON, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("unable to marshal sample: %w", err)
		}

		adhatBucket := tx.Bucket([]byte(bboltADHatBucket))
		samplesBucket := adhatBucket.Bucket([]byte(bboltSamplesBucket))

		key := s.Time.UTC().Format(time.RFC3339Nano)
		if err := samplesBucket.Put([]byte(key), sampleJSON); err != nil {
			return fmt.Errorf("unable to put sample %q: %w", key, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to record sample: %w", err)
	}

	return nil
}

// RecentSamples returns up to n samples, newest first. Keys are RFC 3339
// timestamps, so bucket order is chronological.
func (b *BBolt) RecentSamples(n int) ([]Sample, error) {
	samples := make([]Sample, 0, n)

	err := b.db.View(func(tx *bbolt.Tx) error {
		adhatBucket := tx.Bucket([]byte(bboltADHatBucket))
		samplesBucket := adhatBucket.Bucket([]byte(bboltSamplesBucket))

		c := samplesBucket.Cursor()
		for k, v := c.Last(); k != nil && len(samples) < n; k, v = c.Prev() {
			var s Sample
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("unable to unmarshal sample %q: %w", k, err)
			}
			samples = append(samples, s)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list recent samples: %w", err)
	}

	return samples, nil
}
