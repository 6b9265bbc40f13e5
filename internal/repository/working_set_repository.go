package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// WorkingSetRepository holds per-camper pre-submission mission selections
// in Redis sets. This is the backing analog of browser-local working state:
// cheap to mutate, cleared on submit, wiped wholesale on reinit.
type WorkingSetRepository struct {
	client *redis.Client
}

// NewWorkingSetRepository constructs the repository.
func NewWorkingSetRepository(client *redis.Client) *WorkingSetRepository {
	return &WorkingSetRepository{client: client}
}

func workingKey(camperID string) string {
	return "working:" + camperID
}

// Get returns the camper's working mission ids.
func (r *WorkingSetRepository) Get(ctx context.Context, camperID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, workingKey(camperID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get working set: %w", err)
	}
	return ids, nil
}

// Add unions mission ids into the camper's working set.
func (r *WorkingSetRepository) Add(ctx context.Context, camperID string, missionIDs []string) error {
	if len(missionIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(missionIDs))
	for i, id := range missionIDs {
		members[i] = id
	}
	if err := r.client.SAdd(ctx, workingKey(camperID), members...).Err(); err != nil {
		return fmt.Errorf("add to working set: %w", err)
	}
	return nil
}

// Remove deletes mission ids from the camper's working set.
func (r *WorkingSetRepository) Remove(ctx context.Context, camperID string, missionIDs []string) error {
	if len(missionIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(missionIDs))
	for i, id := range missionIDs {
		members[i] = id
	}
	if err := r.client.SRem(ctx, workingKey(camperID), members...).Err(); err != nil {
		return fmt.Errorf("remove from working set: %w", err)
	}
	return nil
}

// Clear drops the camper's working set entirely.
func (r *WorkingSetRepository) Clear(ctx context.Context, camperID string) error {
	if err := r.client.Del(ctx, workingKey(camperID)).Err(); err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	return nil
}

// ClearAll removes every working set. Used by the data-version wipe.
func (r *WorkingSetRepository) ClearAll(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "working:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clear working sets: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan working sets: %w", err)
	}
	return nil
}
