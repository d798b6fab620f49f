package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"manbo/internal/analysis"
	"manbo/pkg/errors"
	"manbo/pkg/logger"
)

const (
	keyPrefix = "manbo:jobs:"
	jobTTL    = 24 * time.Hour
)

// JobStore persists job records in Redis so status survives restarts and
// can be shared across instances.
type JobStore struct {
	client *redis.Client
	log    *logger.Logger
}

// NewJobStore creates a store over an existing Redis client.
func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{
		client: client,
		log:    logger.Get().With("component", "redis_job_store"),
	}
}

// Create stores a new record, failing if the id already exists.
func (s *JobStore) Create(ctx context.Context, record *analysis.JobRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal job record")
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+record.ID, payload, jobTTL).Result()
	if err != nil {
		return errors.Wrapf(err, "store job %s", record.ID)
	}
	if !ok {
		return errors.Wrapf(errors.ErrAlreadyExists, "job %s", record.ID)
	}
	return nil
}

// Get fetches a record snapshot.
func (s *JobStore) Get(ctx context.Context, id string) (*analysis.JobRecord, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetch job %s", id)
	}

	var record analysis.JobRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, errors.Wrapf(err, "unmarshal job %s", id)
	}
	return &record, nil
}

// Transition advances a job's status under optimistic locking so
// concurrent writers cannot corrupt the lifecycle.
func (s *JobStore) Transition(ctx context.Context, id string, next analysis.JobStatus, update analysis.Update) error {
	key := keyPrefix + id

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return errors.Wrapf(errors.ErrNotFound, "job %s", id)
		}
		if err != nil {
			return errors.Wrapf(err, "fetch job %s", id)
		}

		var record analysis.JobRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return errors.Wrapf(err, "unmarshal job %s", id)
		}
		if !analysis.CanTransition(record.Status, next) {
			return errors.Wrapf(errors.ErrInvalidTransition, "job %s: %s -> %s", id, record.Status, next)
		}

		analysis.ApplyTransition(&record, next, update, time.Now())

		updated, err := json.Marshal(&record)
		if err != nil {
			return errors.Wrap(err, "marshal job record")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, jobTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err != redis.TxFailedErr {
			return err
		}
		s.log.Debugf("transition of job %s raced, retrying", id)
	}
	return errors.Wrapf(errors.ErrInternal, "transition of job %s kept racing", id)
}
