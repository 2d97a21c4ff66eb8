package experts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

const (
	minChanges   = 10
	limitAbove   = 30
	limitExperts = 5
	Nobody       = "NOBODY"
)

var skipContributors = map[models.User]struct{}{
	"miss-islington": {},
	"web-flow":       {},
	"mariatta-bot":   {},
	"blurb-it":       {},
	"blurb-it[bot]":  {},
}

// Categories counts contributions per user for each category
type Categories map[string]map[models.User]int

type Expert struct {
	User  models.User `json:"user"`
	Count int         `json:"count"`
}

// Entry is one line of the experts report
type Entry struct {
	Category string   `json:"category"`
	Changes  int      `json:"changes"`
	Experts  []Expert `json:"experts"`
}

// ChangeIterator is the part of the change store the report reads
type ChangeIterator interface {
	ForEachChange(ctx context.Context, fn func(key string, change *models.Change) error) error
}

// Build counts the contributors of every merged change per category of
// the files it touched
func Build(ctx context.Context, changes ChangeIterator) (Categories, error) {
	c := make(Categories)
	err := changes.ForEachChange(ctx, func(_ string, change *models.Change) error {
		if change.MergedAt == nil {
			return nil
		}
		for _, f := range change.Files {
			category := CategoryForFile(f.Name)
			if category == "" {
				continue
			}
			for user := range change.Contributors {
				if _, skip := skipContributors[user]; skip {
					continue
				}
				if c[category] == nil {
					c[category] = make(map[models.User]int)
				}
				c[category][user]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to categorize changes: %w", err)
	}
	return c, nil
}

// Report lists the most frequent contributors of every category with at
// least minChanges contributions. When repoDir is a checkout, categories
// with no matching path in it are left out.
func (c Categories) Report(repoDir string) []Entry {
	checkout := false
	if info, err := os.Stat(repoDir); err == nil && info.IsDir() {
		checkout = true
	}

	var entries []Entry
	for _, category := range c.sorted() {
		if checkout && !exists(repoDir, category) {
			continue
		}

		ranked := rank(c[category])
		total := 0
		for _, e := range ranked {
			total += e.Count
		}
		if total < minChanges {
			continue
		}
		if total > limitAbove && len(ranked) > limitExperts {
			ranked = ranked[:limitExperts]
		}

		entry := Entry{Category: category, Changes: total, Experts: []Expert{}}
		for _, e := range ranked {
			if e.Count > 1 {
				entry.Experts = append(entry.Experts, e)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Format writes entries in the "category: user (n), ..." layout
func Format(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		names := make([]string, 0, len(e.Experts))
		for _, expert := range e.Experts {
			names = append(names, fmt.Sprintf("%s (%d)", expert.User, expert.Count))
		}
		line := strings.Join(names, ", ")
		if line == "" {
			line = Nobody
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Category, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d categories.\n", len(entries))
	return err
}

// Service builds the report from the change store
type Service struct {
	changes ChangeIterator
	repoDir string
	logger  *logrus.Logger
}

func NewService(changes ChangeIterator, repoDir string, logger *logrus.Logger) *Service {
	return &Service{changes: changes, repoDir: repoDir, logger: logger}
}

func (s *Service) Report(ctx context.Context) ([]Entry, error) {
	c, err := Build(ctx, s.changes)
	if err != nil {
		return nil, err
	}
	before := len(c)
	c.Normalize()
	s.logger.WithFields(logrus.Fields{
		"categories": before,
		"normalized": len(c),
	}).Debug("Categorized merged changes")
	return c.Report(s.repoDir), nil
}

// exists reports whether the category names a path of the checkout. Bare
// names without a source suffix match as prefixes.
func exists(repoDir, category string) bool {
	pattern := category
	if !hasAnySuffix(pattern, ".c", ".h", ".py", ".rst") {
		pattern += "*"
	}
	matches, err := filepath.Glob(filepath.Join(repoDir, pattern))
	return err == nil && len(matches) > 0
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// rank orders contributors by count, then by name
func rank(counts map[models.User]int) []Expert {
	ranked := make([]Expert, 0, len(counts))
	for user, n := range counts {
		ranked = append(ranked, Expert{User: user, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].User < ranked[j].User
	})
	return ranked
}

func (c Categories) sorted() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
