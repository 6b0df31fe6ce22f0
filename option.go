package sqlm

// An Option provides optional configuration and is supplied when
// creating a new Session or DB.
type Option func(o *options)

type options struct {
	registry  *Registry
	factories *Factories
	logger    Logger
	patterns  PatternMode
	dialects  *Dialects
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.factories == nil {
		o.factories = NewFactories()
	}
	if o.dialects == nil {
		o.dialects = defaultDialects
	}
	return o
}

// WithRegistry creates an option that sets the registry of table
// mappings. Sessions that share a registry share their mappings.
// If not specified, each session has its own registry.
func WithRegistry(registry *Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithFactories creates an option that sets the command factories.
func WithFactories(factories *Factories) Option {
	return func(o *options) {
		o.factories = factories
	}
}

// WithLogger creates an option that logs each command before it
// is executed.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBoundPatterns creates an option that binds the values of
// Like and Between conditions as parameters, instead of rendering
// them as literals in the statement text.
func WithBoundPatterns() Option {
	return func(o *options) {
		o.patterns = BoundPatterns
	}
}

// WithDialects creates an option that sets the dialects used by NewDB
// and Open to choose the SQL dialect. If not specified, the default
// dialects are used.
func WithDialects(dialects *Dialects) Option {
	return func(o *options) {
		o.dialects = dialects
	}
}
