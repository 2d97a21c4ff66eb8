package changes

import (
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// Reconcile merges a freshly built change into the stored one field by
// field: a non-empty fetched value always wins, an empty fetched value only
// replaces an empty stored value. It reports whether stored changed.
func Reconcile(stored, fetched *models.Change) bool {
	before := *stored

	stored.Title = pick(stored.Title, fetched.Title, nonEmptyString[string])
	stored.Description = pick(stored.Description, fetched.Description, nonEmptyString[string])
	stored.Files = pick(stored.Files, fetched.Files, nonEmptySlice[[]models.File, models.File])
	stored.Branch = pick(stored.Branch, fetched.Branch, nonEmptyString[models.Branch])
	stored.Contributors = pick(stored.Contributors, fetched.Contributors, nonEmptySet[models.User])
	stored.Authors = pick(stored.Authors, fetched.Authors, nonEmptySet[models.User])
	stored.MergedBy = pick(stored.MergedBy, fetched.MergedBy, nonEmptyString[models.User])
	stored.OpenedAt = pick(stored.OpenedAt, fetched.OpenedAt, nonNilTime)
	stored.MergedAt = pick(stored.MergedAt, fetched.MergedAt, nonNilTime)
	stored.ClosedAt = pick(stored.ClosedAt, fetched.ClosedAt, nonNilTime)
	stored.UpdatedAt = pick(stored.UpdatedAt, fetched.UpdatedAt, nonNilTime)
	stored.CommitID = pick(stored.CommitID, fetched.CommitID, nonEmptyString[models.SHA1])
	stored.PRID = pick(stored.PRID, fetched.PRID, func(id models.PRID) bool { return id != models.UnknownPR })
	stored.Comments = pick(stored.Comments, fetched.Comments, nonEmptySlice[[]models.Comment, models.Comment])
	stored.Labels = pick(stored.Labels, fetched.Labels, nonEmptySet[models.Label])

	return !Equal(&before, stored)
}

// Equal compares two changes, treating nil and empty collections alike
func Equal(a, b *models.Change) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

func pick[T any](old, fetched T, set func(T) bool) T {
	if set(fetched) || !set(old) {
		return fetched
	}
	return old
}

func nonEmptyString[S ~string](s S) bool {
	return s != ""
}

func nonEmptySlice[S ~[]E, E any](s S) bool {
	return len(s) > 0
}

func nonEmptySet[T ~string](s models.Set[T]) bool {
	return len(s) > 0
}

func nonNilTime(t *time.Time) bool {
	return t != nil
}
