package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User is a GitHub login.
type User string

// NoUser marks an identity that could not be resolved to a login.
const NoUser User = ""

// PRID is a pull request number.
type PRID int

// UnknownPR marks a commit whose pull request is not known.
const UnknownPR PRID = 0

// SHA1 is a hex commit id.
type SHA1 string

// NotMerged is the commit id of a change that never landed.
const NotMerged SHA1 = ""

type Label string

type Branch string

// ChangeState is derived from a change's timestamps
type ChangeState string

const (
	StateOpen   ChangeState = "open"
	StateMerged ChangeState = "merged"
	StateClosed ChangeState = "closed"
)

const changeKeyPrefix = "GH-"

// File is a per-file diff summary of a change
type File struct {
	Name      string `json:"name"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// Comment is an issue comment, review verdict or inline review comment
type Comment struct {
	Author User   `json:"author"`
	Text   string `json:"text"`
}

// Change is one pull request as stored in the change store
type Change struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Files        []File     `json:"files"`
	Branch       Branch     `json:"branch"`
	Contributors Set[User]  `json:"contributors"`
	Authors      Set[User]  `json:"authors"`
	MergedBy     User       `json:"merged_by"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	MergedAt     *time.Time `json:"merged_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	CommitID     SHA1       `json:"commit_id"`
	PRID         PRID       `json:"pr_id"`
	Comments     []Comment  `json:"comments"`
	Labels       Set[Label] `json:"labels"`
}

// State derives the lifecycle state from the timestamps.
func (c *Change) State() ChangeState {
	switch {
	case c.MergedAt != nil:
		return StateMerged
	case c.ClosedAt != nil:
		return StateClosed
	case c.OpenedAt != nil:
		return StateOpen
	default:
		return StateClosed
	}
}

// Key returns the store key of the change
func (c *Change) Key() string {
	return ChangeKey(c.PRID)
}

// AddContributor adds user to the contributor set, reporting whether it was new.
func (c *Change) AddContributor(user User) bool {
	if user == NoUser {
		return false
	}
	if c.Contributors == nil {
		c.Contributors = NewSet[User]()
	}
	return c.Contributors.Add(user)
}

// ChangeKey returns the store key for a pull request
func ChangeKey(id PRID) string {
	return changeKeyPrefix + strconv.Itoa(int(id))
}

// ParseChangeKey is the inverse of ChangeKey
func ParseChangeKey(key string) (PRID, error) {
	if !strings.HasPrefix(key, changeKeyPrefix) {
		return UnknownPR, fmt.Errorf("invalid change key %q", key)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, changeKeyPrefix))
	if err != nil || n <= 0 {
		return UnknownPR, fmt.Errorf("invalid change key %q", key)
	}
	return PRID(n), nil
}

// StoredChange is a change together with its store bookkeeping
type StoredChange struct {
	ID     string      `json:"id"`
	State  ChangeState `json:"state"`
	Change *Change     `json:"change"`
	Timestamps
}
