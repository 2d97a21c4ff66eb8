package main

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/api"
	"github.com/Kamar-Folarin/cpython-stats/internal/config"
	"github.com/Kamar-Folarin/cpython-stats/internal/coredevs"
	"github.com/Kamar-Folarin/cpython-stats/internal/db"
	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
	"github.com/Kamar-Folarin/cpython-stats/internal/experts"
	"github.com/Kamar-Folarin/cpython-stats/internal/export"
	"github.com/Kamar-Folarin/cpython-stats/internal/github"
	"github.com/Kamar-Folarin/cpython-stats/internal/gitwalk"
	"github.com/Kamar-Folarin/cpython-stats/internal/identity"
	"github.com/Kamar-Folarin/cpython-stats/internal/ingest"
	"github.com/Kamar-Folarin/cpython-stats/internal/models"
	"github.com/Kamar-Folarin/cpython-stats/internal/progress"
	"github.com/Kamar-Folarin/cpython-stats/internal/ratelimit"
)

const progressInterval = 5 * time.Second

// application opens the collaborators a command needs and closes them at exit
type application struct {
	cfg    *config.Config
	logger *logrus.Logger

	statsDB *sql.DB
	cacheDB *sql.DB
}

func (a *application) close() {
	if a.cacheDB != nil && a.cacheDB != a.statsDB {
		a.cacheDB.Close()
	}
	if a.statsDB != nil {
		a.statsDB.Close()
	}
	a.statsDB, a.cacheDB = nil, nil
}

func (a *application) store() (*db.PostgresStore, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	if a.statsDB == nil {
		sqlDB, err := db.Open(a.cfg.DBConnectionString)
		if err != nil {
			return nil, err
		}
		a.statsDB = sqlDB

		// Run migrations with retry logic
		store := db.NewPostgresStore(sqlDB)
		if err := retry(3, 5*time.Second, store.Migrate); err != nil {
			return nil, fmt.Errorf("failed to run migrations after retries: %w", err)
		}
	}
	return db.NewPostgresStore(a.statsDB), nil
}

func (a *application) identityCache() (*db.IdentityCache, error) {
	if a.cacheDB == nil {
		if a.cfg.CacheDBConnectionString == a.cfg.DBConnectionString {
			if _, err := a.store(); err != nil {
				return nil, err
			}
			a.cacheDB = a.statsDB
		} else {
			sqlDB, err := db.Open(a.cfg.CacheDBConnectionString)
			if err != nil {
				return nil, err
			}
			a.cacheDB = sqlDB
		}
	}
	return db.NewIdentityCache(a.cacheDB), nil
}

// gitHub returns an API client throttled by a limiter that reads its
// quotas through the same client
func (a *application) gitHub() (*github.Client, *ratelimit.Limiter, error) {
	if err := a.cfg.RequireGitHub(); err != nil {
		return nil, nil, err
	}
	client, err := github.NewClient(&a.cfg.GitHub, a.logger)
	if err != nil {
		return nil, nil, err
	}

	limiter := ratelimit.NewLimiter(client, a.cfg.GitHub.RateLimit, a.logger,
		ratelimit.WithProgress(progress.NewLogReporter(a.logger, "rate limit", 0, progressInterval)))
	client.SetThrottler(limiter)
	return client, limiter, nil
}

func (a *application) migrate() error {
	_, err := a.store()
	if err == nil {
		a.logger.Info("Migrations applied")
	}
	return err
}

func (a *application) importPullRequests(ctx context.Context, state string) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	client, _, err := a.gitHub()
	if err != nil {
		return err
	}
	if state == "" {
		state = a.cfg.Ingest.PRState
	}

	importer := ingest.NewPullRequestImporter(client, store, ingest.NewStatusManager(store), a.logger,
		ingest.WithState(state),
		ingest.WithProgress(progress.NewLogReporter(a.logger, "pull requests", 0, progressInterval)))
	_, err = importer.Run(ctx)
	return err
}

func (a *application) importCommits(ctx context.Context, fetch bool) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	cache, err := a.identityCache()
	if err != nil {
		return err
	}
	client, limiter, err := a.gitHub()
	if err != nil {
		return err
	}

	repo, err := gitwalk.Open(ctx, a.cfg.Ingest.RepoLocation, a.cfg.Ingest.RepoURL, a.logger)
	if err != nil {
		return err
	}

	resolver := identity.NewResolver(cache, client, limiter, a.logger,
		identity.WithNoreplyDomain(a.cfg.GitHub.NoreplyDomain),
		identity.WithMajorityThreshold(a.cfg.Ingest.MajorityThreshold))
	walker := gitwalk.NewWalker(resolver, a.logger,
		gitwalk.WithProgress(progress.NewLogReporter(a.logger, "commits", 0, progressInterval)))

	opts := []ingest.Option{}
	if !fetch {
		opts = append(opts, ingest.WithoutFetch())
	}
	importer := ingest.NewCommitImporter(repo, store, walker, ingest.NewStatusManager(store), a.logger,
		a.cfg.Ingest.Branches, a.cfg.Ingest.Cutoff, opts...)
	_, err = importer.Run(ctx)
	return err
}

func (a *application) seedCoreDevs(ctx context.Context, path string) error {
	if path == "" {
		path = a.cfg.CoreDevsPath
	}
	devs, err := coredevs.Load(path)
	if err != nil {
		return err
	}
	cache, err := a.identityCache()
	if err != nil {
		return err
	}

	seeded, err := coredevs.Seed(ctx, cache, devs, a.logger)
	a.logger.WithFields(logrus.Fields{"core_devs": len(devs), "seeded": seeded}).Info("Seeded identity cache")
	return err
}

func (a *application) coreDevUsernames() models.Set[models.User] {
	devs, err := coredevs.Load(a.cfg.CoreDevsPath)
	if err != nil {
		a.logger.WithError(err).Warn("No core developer list, exporting without core developer flags")
		return models.NewSet[models.User]()
	}
	return coredevs.Usernames(devs)
}

func (a *application) export(ctx context.Context) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	_, err = export.NewExporter(store, store, &a.cfg.Batch, a.coreDevUsernames(), a.logger).Run(ctx)
	return err
}

func (a *application) experts(ctx context.Context, w io.Writer) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	entries, err := experts.NewService(store, a.cfg.Ingest.RepoLocation, a.logger).Report(ctx)
	if err != nil {
		return err
	}
	return experts.Format(w, entries)
}

func (a *application) serve(ctx context.Context, port string) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	cache, err := a.identityCache()
	if err != nil {
		return err
	}
	if port == "" {
		port = a.cfg.Port
	}

	handler := api.NewHandler(store, cache,
		experts.NewService(store, a.cfg.Ingest.RepoLocation, a.logger),
		ingest.NewStatusManager(store), a.logger)
	router := api.SetupRouter(handler, gin.ReleaseMode)

	// Setup router with middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return apperrors.NewInternalError("server failed", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.logger.Info("Server exited properly")
	return nil
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
