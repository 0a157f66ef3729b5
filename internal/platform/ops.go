package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ortholine/inlay/pkg/adapters/badger"
	"github.com/ortholine/inlay/pkg/adapters/fs"
	"github.com/ortholine/inlay/pkg/core"
)

// Init builds and initializes the repository selected by opts. uri is
// adapter-specific: the vault directory for "fs", the database directory
// for "badger".
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := parse(opts)
	if o.repository != nil {
		return o.repository, nil
	}

	repo, err := build(uri, o)
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func build(uri string, o *options) (core.Repository, error) {
	switch o.adapter {
	case AdapterFS, "":
		return initFS(uri, o)
	case AdapterBadger:
		return initBadger(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// resolvePath applies the dev sandbox rules to path.
func resolvePath(path string, o *options) (string, bool) {
	tempDir, _ := o.config["temp_dir"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}
	bypass := readOnly || !devSafety

	useTemp := tempDir || (IsDevRun() && !bypass)
	resolved := ResolveVaultPath(path, useTemp)

	if o.logger != nil {
		switch {
		case useTemp:
			o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", path, "resolved_path", resolved)
		case IsDevRun() && readOnly:
			o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
		case IsDevRun():
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}
	return resolved, useTemp
}

func initFS(path string, o *options) (core.Repository, error) {
	autoInit, _ := o.config["auto_init"].(bool)
	gitless, _ := o.config["gitless"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	systemDir, _ := o.config["system_dir"].(string)
	defaultExt, _ := o.config["default_ext"].(string)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	if systemDir == "" {
		systemDir = ".inlay"
	}

	resolved, useTemp := resolvePath(path, o)

	// Without an explicit choice, versioning follows the vault: an existing
	// .git means Git; a fresh auto-initialized vault gets Git unless it
	// already has a system dir from an earlier gitless run.
	if _, set := o.config["gitless"]; !set {
		switch {
		case hasFile(resolved, ".git"):
			gitless = false
		case autoInit:
			gitless = hasFile(resolved, systemDir)
		default:
			gitless = true
		}
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}

	repo := fs.NewRepository(fs.Config{
		Path:         resolved,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    mustExist || (!autoInit && !useTemp),
		ReadOnly:     readOnly,
		Logger:       o.logger,
		SystemDir:    systemDir,
		DefaultExt:   defaultExt,
		ErrorHandler: errorHandler,
	})

	for ext, s := range o.serializers {
		serializer, ok := s.(fs.Serializer)
		if !ok {
			return nil, fmt.Errorf("serializer for %s must implement fs.Serializer", ext)
		}
		repo.RegisterSerializer(ext, serializer)
	}
	return repo, nil
}

func initBadger(path string, o *options) (core.Repository, error) {
	inMemory, _ := o.config["in_memory"].(bool)
	readOnly, _ := o.config["read_only"].(bool)
	autoInit, _ := o.config["auto_init"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)

	resolved := ""
	if !inMemory {
		var useTemp bool
		resolved, useTemp = resolvePath(path, o)
		if (mustExist || (!autoInit && !useTemp)) && !readOnly {
			if _, err := os.Stat(resolved); os.IsNotExist(err) {
				return nil, fmt.Errorf("database path does not exist: %s", resolved)
			}
		}
		resolved = filepath.Clean(resolved)
	}

	return badger.NewStore(badger.Config{
		Path:     resolved,
		InMemory: inMemory,
		ReadOnly: readOnly,
		Logger:   o.logger,
	}), nil
}

// Sync synchronizes the vault at uri with its remote.
func Sync(uri string, opts ...Option) error {
	o := parse(opts)

	repo := o.repository
	if repo == nil {
		o.config["must_exist"] = true
		var err error
		if repo, err = build(uri, o); err != nil {
			return err
		}
	}

	syncable, ok := repo.(core.Syncable)
	if !ok {
		return fmt.Errorf("repository does not support synchronization: %w", core.ErrUnsupported)
	}
	return syncable.Sync(context.Background())
}
