package platform

import (
	"log/slog"

	"github.com/ortholine/inlay/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterBadger = "badger"
)

// options holds the internal configuration for the inlay service.
type options struct {
	repository  core.Repository
	logger      *slog.Logger
	adapter     string
	config      map[string]any
	serializers map[string]any
}

// Option defines a functional option for configuring inlay.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:     AdapterFS,
		config:      make(map[string]any),
		serializers: make(map[string]any),
	}
}

func parse(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSerializer registers a custom serializer for a file extension.
// s must implement fs.Serializer; this is checked by Init.
func WithSerializer(ext string, s any) Option {
	return func(o *options) {
		o.serializers[ext] = s
	}
}

// WithAutoInit creates the vault directory and Git repository if missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables Git versioning of the fs adapter.
// When not set, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["gitless"] = !enabled
	}
}

// WithForceTemp forces the vault into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the vault directory already exists.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the service and its adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a storage adapter, skipping adapter selection.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name ("fs" or "badger").
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSystemDir sets the hidden directory used by the fs adapter.
// Defaults to ".inlay".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithDefaultExt sets the file extension used for new fs entries.
func WithDefaultExt(ext string) Option {
	return func(o *options) {
		o.config["default_ext"] = ext
	}
}

// WithEventBuffer sets the size of the Watch relay buffer.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode: writes return core.ErrReadOnly,
// initialization touches nothing on disk and the dev sandbox is bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// By default vault paths are re-rooted into a temporary directory there.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithInMemory keeps the badger adapter's database in memory.
func WithInMemory(enabled bool) Option {
	return func(o *options) {
		o.config["in_memory"] = enabled
	}
}

// WithEscaping makes the renderer HTML-escape text fields.
func WithEscaping(enabled bool) Option {
	return func(o *options) {
		o.config["escape_html"] = enabled
	}
}

// WithRichImport makes HTML imports keep headings, lists, images and
// tables instead of splitting everything into paragraphs.
func WithRichImport(enabled bool) Option {
	return func(o *options) {
		o.config["rich_import"] = enabled
	}
}
