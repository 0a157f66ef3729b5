package inlay

import (
	"log/slog"

	"github.com/ortholine/inlay/internal/platform"
	"github.com/ortholine/inlay/pkg/core"
	"github.com/ortholine/inlay/pkg/typed"
)

// --- Types ---

// EntryModel is a public alias for the typed entry model.
type EntryModel[T any] = typed.EntryModel[T]

// TypedRepository is a public alias for the typed repository.
type TypedRepository[T any] = typed.Repository[T]

// TypedService is a public alias for the typed service.
type TypedService[T any] = typed.Service[T]

// Config is the content of inlay.yaml.
type Config = platform.FileConfig

// --- Configuration ---

// Option configures the repository and service built by New and Init.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterBadger = platform.AdapterBadger
)

// WithAutoInit creates the vault directory (and runs git init) when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables Git versioning of the fs adapter.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the vault into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist fails initialization when the vault directory is missing.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the repository and service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSerializer registers a custom fs serializer for ext.
func WithSerializer(ext string, s any) Option {
	return platform.WithSerializer(ext, s)
}

// WithSystemDir sets the hidden directory name (default ".inlay").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithDefaultExt sets the extension used for new entries.
func WithDefaultExt(ext string) Option {
	return platform.WithDefaultExt(ext)
}

// WithEventBuffer sets the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler receives errors from the fs watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety toggles the dev sandbox applied under go run and go test.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithInMemory keeps the badger adapter entirely in memory.
func WithInMemory(enabled bool) Option {
	return platform.WithInMemory(enabled)
}

// WithEscaping HTML-escapes block text when rendering.
func WithEscaping(enabled bool) Option {
	return platform.WithEscaping(enabled)
}

// WithRichImport bootstraps editor documents with the structured HTML parser.
func WithRichImport(enabled bool) Option {
	return platform.WithRichImport(enabled)
}

// --- Factory ---

// New creates a Service over the repository selected by opts.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// Init initializes a repository explicitly.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// LoadConfig reads inlay.yaml. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// --- Typed Factories ---

// NewTypedRepository creates a type-safe wrapper around an existing repository.
func NewTypedRepository[T any](repo core.Repository) *typed.Repository[T] {
	return typed.NewRepository[T](repo)
}

// NewTypedService creates a type-safe wrapper around an existing service.
func NewTypedService[T any](svc *core.Service) *typed.Service[T] {
	return typed.NewService[T](svc)
}

// OpenTypedService creates a TypedService from a path.
func OpenTypedService[T any](path string, opts ...Option) (*typed.Service[T], error) {
	svc, err := New(path, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewService[T](svc), nil
}

// --- Operations ---

// Sync pulls and pushes the vault at path.
func Sync(path string, opts ...Option) error {
	return platform.Sync(path, opts...)
}

// --- Safety & Utils ---

// ResolveVaultPath determines the actual vault path under the dev safety rules.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}

// IsDevRun reports whether the process runs under go run or go test.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindVaultRoot looks upwards from startDir for a vault root marker.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Semantic Commits ---

const (
	CommitTypeFeat     = platform.CommitTypeFeat
	CommitTypeFix      = platform.CommitTypeFix
	CommitTypeDocs     = platform.CommitTypeDocs
	CommitTypeStyle    = platform.CommitTypeStyle
	CommitTypeRefactor = platform.CommitTypeRefactor
	CommitTypePerf     = platform.CommitTypePerf
	CommitTypeTest     = platform.CommitTypeTest
	CommitTypeChore    = platform.CommitTypeChore
)

// FormatChangeReason builds a Conventional Commit message.
func FormatChangeReason(ctype, scope, subject, body string) string {
	return platform.FormatCommitMessage(ctype, scope, subject, body)
}

// AppendFooter appends the inlay footer to an arbitrary message.
func AppendFooter(msg string) string {
	return platform.AppendFooter(msg)
}
