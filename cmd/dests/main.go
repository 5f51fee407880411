package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tjdests/tjdests/internal/config"
	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/logging"
	miniorepo "github.com/tjdests/tjdests/internal/repository/minio"
	"github.com/tjdests/tjdests/internal/repository/postgres"
	"github.com/tjdests/tjdests/internal/service"
)

const usage = `usage: dests <command> [flags]

commands:
  migrate           apply database migrations
  export-colleges   write every college, keyed by college hash
  export-users      write every account with its decisions and test scores
  import-colleges   load colleges written by export-colleges
  import-users      load accounts written by export-users

flags:
  -file string      local path, or object name when -bucket is set
  -bucket string    read and write through the MinIO bucket instead of the disk
  -remote           same as -bucket with MINIO_BUCKET_TRANSFERS
`

var errUsage = errors.New("invalid usage")

type options struct {
	file   string
	bucket string
	remote bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	var opts options
	fs.StringVar(&opts.file, "file", "", "local path, or object name when -bucket is set")
	fs.StringVar(&opts.bucket, "bucket", "", "MinIO bucket holding transfer files")
	fs.BoolVar(&opts.remote, "remote", false, "use the MINIO_BUCKET_TRANSFERS bucket")
	_ = fs.Parse(os.Args[2:])

	cfg := config.Load()
	if opts.remote && opts.bucket == "" {
		opts.bucket = cfg.MinIOBucketTransfers
	}
	logger := logging.New(logging.Options{Environment: cfg.AppEnv, Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, opts, cfg, logger); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, opts options, cfg config.Config, logger *zap.Logger) error {
	switch command {
	case "migrate", "export-colleges", "export-users", "import-colleges", "import-users":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if command != "migrate" && opts.file == "" {
		return fmt.Errorf("%w: %s needs -file", errUsage, command)
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if command == "migrate" {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	}

	archive, err := openArchive(ctx, opts.bucket, cfg)
	if err != nil {
		return err
	}
	transfers := service.NewTransferService(postgres.NewStore(db), logger)

	switch command {
	case "export-colleges":
		colleges, err := transfers.ExportColleges(ctx)
		if err != nil {
			return err
		}
		location, err := archive.Write(ctx, opts.file, colleges)
		if err != nil {
			return err
		}
		logger.Info("colleges exported", zap.Int("count", len(colleges)), zap.String("location", location))
	case "export-users":
		users, err := transfers.ExportUsers(ctx)
		if err != nil {
			return err
		}
		location, err := archive.Write(ctx, opts.file, users)
		if err != nil {
			return err
		}
		logger.Info("users exported", zap.Int("count", len(users)), zap.String("location", location))
	case "import-colleges":
		var colleges map[string]domain.ExportedCollege
		if err := archive.Read(ctx, opts.file, &colleges); err != nil {
			return err
		}
		summary, err := transfers.ImportColleges(ctx, colleges)
		if err != nil {
			return err
		}
		logSummary(logger, "colleges imported", summary)
	case "import-users":
		var users map[string]domain.ExportedUser
		if err := archive.Read(ctx, opts.file, &users); err != nil {
			return err
		}
		summary, err := transfers.ImportUsers(ctx, users)
		if err != nil {
			return err
		}
		logSummary(logger, "users imported", summary)
	}
	return nil
}

func openArchive(ctx context.Context, bucket string, cfg config.Config) (*service.TransferArchive, error) {
	if bucket == "" {
		return service.NewTransferArchive(nil, ""), nil
	}
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("%w: -bucket needs MINIO_ENDPOINT", errUsage)
	}
	client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		return nil, err
	}
	storage := miniorepo.NewStorage(client)
	if err := storage.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return service.NewTransferArchive(storage, bucket), nil
}

func logSummary(logger *zap.Logger, msg string, s domain.ImportSummary) {
	logger.Info(msg,
		zap.Int("total", s.Total),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("skipped", s.Skipped),
		zap.Int("errors", s.Errors),
	)
}
