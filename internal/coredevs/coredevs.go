package coredevs

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
)

// CoreDev is one [[core-dev]] entry of python-core.toml
type CoreDev struct {
	Name          string `toml:"name"`
	VotingAddress string `toml:"voting_address"`
	GitHub        string `toml:"github"`
}

type document struct {
	CoreDevs []CoreDev `toml:"core-dev"`
}

// Cache is the identity cache being seeded
type Cache interface {
	Lookup(ctx context.Context, email string) (*models.User, error)
	Store(ctx context.Context, email string, user *models.User) error
	Overwrite(ctx context.Context, email string, user models.User) error
}

// Load reads the core developer list from path
func Load(path string) ([]CoreDev, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("core developer list %s", path), err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a core developer list, dropping entries that lack a name,
// an address or a login
func Decode(r io.Reader) ([]CoreDev, error) {
	var doc document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.NewValidationError("invalid core developer list", err)
	}

	devs := make([]CoreDev, 0, len(doc.CoreDevs))
	for _, d := range doc.CoreDevs {
		if d.Name == "" || d.VotingAddress == "" || d.GitHub == "" {
			continue
		}
		devs = append(devs, d)
	}
	return devs, nil
}

// Usernames returns the logins of devs
func Usernames(devs []CoreDev) models.Set[models.User] {
	users := models.NewSet[models.User]()
	for _, d := range devs {
		users.Add(models.User(d.GitHub))
	}
	return users
}

// Seed records the known login of every core developer's voting address.
// A different cached login is kept and reported; a cached negative result
// is replaced.
func Seed(ctx context.Context, cache Cache, devs []CoreDev, logger *logrus.Logger) (int, error) {
	seeded := 0
	for _, d := range devs {
		user := models.User(d.GitHub)
		fields := logrus.Fields{"name": d.Name, "email": d.VotingAddress, "user": user}

		cached, err := cache.Lookup(ctx, d.VotingAddress)
		switch {
		case err == nil && cached != nil:
			if *cached != user {
				logger.WithFields(fields).WithField("cached", *cached).Warn("Cached user differs from core developer list")
			}
			continue
		case err == nil:
			err = cache.Overwrite(ctx, d.VotingAddress, user)
		case apperrors.IsNotFound(err):
			err = cache.Store(ctx, d.VotingAddress, &user)
		}
		if err != nil {
			return seeded, fmt.Errorf("failed to seed %s: %w", d.VotingAddress, err)
		}

		logger.WithFields(fields).Debug("Seeded core developer")
		seeded++
	}
	return seeded, nil
}
