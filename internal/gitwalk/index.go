package gitwalk

import (
	"context"
	"fmt"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// ChangeIterator is the part of the change store the index is built from
type ChangeIterator interface {
	ForEachChange(ctx context.Context, fn func(key string, change *models.Change) error) error
}

// Index maps merge commits to the pull request that produced them
type Index map[models.SHA1]models.PRID

// BuildIndex indexes every merged change with a known pull request
func BuildIndex(ctx context.Context, changes ChangeIterator) (Index, error) {
	index := make(Index)
	err := changes.ForEachChange(ctx, func(key string, change *models.Change) error {
		if change.CommitID == models.NotMerged || change.PRID == models.UnknownPR {
			return nil
		}
		index[change.CommitID] = change.PRID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index changes: %w", err)
	}
	return index, nil
}

// PR returns the pull request merged as sha, or UnknownPR
func (i Index) PR(sha models.SHA1) models.PRID {
	return i[sha]
}
