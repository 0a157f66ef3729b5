package platform

import (
	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
)

// New initializes the repository selected by opts and wraps it in a
// core.Service configured from the same options.
//
//	svc, err := inlay.New("./content", inlay.WithVersioning(false))
func New(uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := parse(opts)
	escape, _ := o.config["escape_html"].(bool)
	rich, _ := o.config["rich_import"].(bool)

	svcOpts := []core.ServiceOption{
		core.WithRenderer(blocks.NewRenderer(blocks.WithEscaping(escape))),
		core.WithRichImport(rich),
	}
	if o.logger != nil {
		svcOpts = append(svcOpts, core.WithLogger(o.logger))
	}
	if size, ok := o.config["event_buffer"].(int); ok && size > 0 {
		svcOpts = append(svcOpts, core.WithEventBuffer(size))
	}
	return core.NewService(repo, svcOpts...), nil
}
