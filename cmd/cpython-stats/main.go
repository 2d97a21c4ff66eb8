package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/cpython-stats/internal/config"
)

var (
	app = kingpin.New("cpython-stats", "Collects contributor statistics for the CPython repository.")

	migrateCmd = app.Command("migrate", "Apply database migrations.")

	importPRsCmd = app.Command("import-prs", "Import pull requests from GitHub into the change store.")
	prState      = importPRsCmd.Flag("state", "Pull request state to list (open, closed, all).").Default("").String()

	importCommitsCmd = app.Command("import-commits", "Attribute commits of the local clone to pull request contributors.")
	noFetch          = importCommitsCmd.Flag("no-fetch", "Walk the local clone without fetching first.").Bool()

	seedCmd      = app.Command("seed-core-devs", "Seed the identity cache from the core developer list.")
	seedPath     = seedCmd.Flag("path", "Path to python-core.toml.").Default("").String()
	exportCmd    = app.Command("export", "Write the change store to the relational export tables.")
	expertsCmd   = app.Command("experts", "Print the top contributors of every source tree category.")
	serveCmd     = app.Command("serve", "Serve the read-only HTTP API.")
	servePortArg = serveCmd.Flag("port", "Port to listen on.").Default("").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &application{cfg: cfg, logger: logger}
	defer a.close()

	switch command {
	case migrateCmd.FullCommand():
		err = a.migrate()
	case importPRsCmd.FullCommand():
		err = a.importPullRequests(ctx, *prState)
	case importCommitsCmd.FullCommand():
		err = a.importCommits(ctx, !*noFetch)
	case seedCmd.FullCommand():
		err = a.seedCoreDevs(ctx, *seedPath)
	case exportCmd.FullCommand():
		err = a.export(ctx)
	case expertsCmd.FullCommand():
		err = a.experts(ctx, os.Stdout)
	case serveCmd.FullCommand():
		err = a.serve(ctx, *servePortArg)
	}

	if err != nil {
		a.close()
		logger.WithError(err).WithField("command", command).Fatal("Command failed")
	}
}
