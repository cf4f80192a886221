package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"

	"github.com/stumpgo/stump/internal/controller"
	"github.com/stumpgo/stump/internal/eventbus"
	"github.com/stumpgo/stump/internal/processors"
	"github.com/stumpgo/stump/internal/processors/cbr"
	"github.com/stumpgo/stump/internal/processors/cbz"
	"github.com/stumpgo/stump/internal/processors/epub"
	"github.com/stumpgo/stump/internal/processors/pdf"
	"github.com/stumpgo/stump/internal/scheduler"
	"github.com/stumpgo/stump/internal/thumbnails"
	"github.com/stumpgo/stump/internal/worker"
	"github.com/stumpgo/stump/pkg/cbzpages"
	"github.com/stumpgo/stump/pkg/config"
	"github.com/stumpgo/stump/pkg/database"
	"github.com/stumpgo/stump/pkg/joblogs"
	"github.com/stumpgo/stump/pkg/jobs"
	"github.com/stumpgo/stump/pkg/libraries"
	"github.com/stumpgo/stump/pkg/media"
	"github.com/stumpgo/stump/pkg/migrations"
	"github.com/stumpgo/stump/pkg/series"
	"github.com/stumpgo/stump/pkg/server"
	"github.com/stumpgo/stump/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting stump", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initCacheDir(cfg.CacheDir); err != nil {
		log.Err(err).Fatal("cache directory error")
	}
	log.Info("cache directory initialized", logger.Data{"path": cfg.CacheDir})

	if err := os.MkdirAll(cfg.ThumbnailsDir, 0755); err != nil {
		log.Err(err).Fatal("thumbnails directory error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	err = database.CheckFTS5Support(db)
	if err != nil {
		log.Err(err).Fatal("FTS5 check failed")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	pageCache := cbzpages.NewCache(filepath.Join(cfg.CacheDir, "cbz"))
	registry := processors.NewRegistry(
		cbz.Processor{Cache: pageCache},
		cbr.Processor{Cache: pageCache},
		epub.Processor{},
		&pdf.Processor{RenderingEnabled: cfg.PDFRenderingEnabled},
	)
	thumbEngine := thumbnails.NewEngine(cfg.ThumbnailsDir, cfg.ScanConcurrency)
	bus := eventbus.New()

	jobService := jobs.NewService(db)
	jobLogService := joblogs.NewService(db)
	libraryService := libraries.NewService(db)
	seriesService := series.NewService(db)
	mediaService := media.NewService(db)

	workerDeps := worker.Deps{
		JobService:       jobService,
		JobLogService:    jobLogService,
		LibraryService:   libraryService,
		SeriesService:    seriesService,
		MediaService:     mediaService,
		Registry:         registry,
		Thumbnails:       thumbEngine,
		ThumbChunkSize:   cfg.ThumbnailBatchSize,
		TaskSoftDeadline: cfg.TaskSoftDeadline,
		Publisher:        bus,
		Log:              log,
	}

	ctrl := controller.New(workerDeps, jobService, cfg.ShutdownDeadline)

	if err := ctrl.Restore(ctx); err != nil {
		log.Err(err).Error("job restore error")
	}

	sched := scheduler.New(cfg.SchedulerIntervalSeconds, cfg.SchedulerExcludedLibraryIDs, libraryService, ctrl, log)

	srv, err := server.New(cfg, db, server.Deps{
		Controller:     ctrl,
		LibraryService: libraryService,
		SeriesService:  seriesService,
		MediaService:   mediaService,
		Registry:       registry,
		Thumbnails:     thumbEngine,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		if err := writePortFile(actualPort); err != nil {
			log.Err(err).Error("failed to write port file")
		}

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	sched.Start()
	log.Info("scheduler started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	sched.Shutdown()
	log.Info("scheduler shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
	defer cancel()
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Err(err).Error("controller shutdown error")
	}
	log.Info("controller shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initCacheDir creates the cache directories and verifies write permissions.
func initCacheDir(dir string) error {
	subdirs := []string{
		filepath.Join(dir, "downloads"),
		filepath.Join(dir, "cbz"),
	}

	for _, subdir := range subdirs {
		if err := os.MkdirAll(subdir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create cache directory: %s", subdir)
		}
	}

	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "cache directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}

// writePortFile writes the server's actual port to tmp/api.port for local tooling.
// Skips silently if tmp/ directory doesn't exist (e.g. in a container).
func writePortFile(port int) error {
	if _, err := os.Stat("tmp"); os.IsNotExist(err) {
		return nil
	}
	return os.WriteFile("tmp/api.port", []byte(strconv.Itoa(port)), 0600)
}
