package osmroute

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
)

const (
	// DefaultBatchCapacity is the initial capacity of every thread-local
	// entity batch.
	DefaultBatchCapacity = 16384
	// DefaultMergeThreshold is the batch size at which a worker attempts an
	// opportunistic merge into the shared collections.
	DefaultMergeThreshold = 8192
)

// Parser ingests a map extract in the OSM XML interchange format into a
// Segment. Construct it with NewParser and the With* options.
type Parser struct {
	filename       string
	workers        int
	batchCapacity  int
	mergeThreshold int
	strictMode     bool
	verbose        bool
	log            zerolog.Logger
}

func (parser *Parser) String() string {
	return fmt.Sprintf(`
Map parser parameters:
	filename: '%s'
	workers: %d
	batch_capacity: %d
	merge_threshold: %d
	strict_mode enabled?: %t
	verbose?: %t
	`,
		parser.filename,
		parser.workers,
		parser.batchCapacity,
		parser.mergeThreshold,
		parser.strictMode,
		parser.verbose,
	)
}

func NewParser(filename string, options ...func(*Parser)) *Parser {
	parser := &Parser{
		filename:       filename,
		workers:        defaultWorkers(),
		batchCapacity:  DefaultBatchCapacity,
		mergeThreshold: DefaultMergeThreshold,
		strictMode:     false,
		log:            zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel),
	}
	for _, option := range options {
		option(parser)
	}
	if parser.workers < 1 {
		parser.workers = defaultWorkers()
	}
	if parser.batchCapacity < 1 {
		parser.batchCapacity = DefaultBatchCapacity
	}
	if parser.mergeThreshold < 1 {
		parser.mergeThreshold = DefaultMergeThreshold
	}
	if parser.verbose {
		parser.log = parser.log.Level(zerolog.DebugLevel)
	}
	return parser
}

// WithWorkers sets the number of parallel ingestion workers. Values below 1
// fall back to the hardware parallelism default.
func WithWorkers(workers int) func(*Parser) {
	return func(parser *Parser) {
		parser.workers = workers
	}
}

// WithBatchCapacity sets the initial capacity of the thread-local batches.
func WithBatchCapacity(batchCapacity int) func(*Parser) {
	return func(parser *Parser) {
		parser.batchCapacity = batchCapacity
	}
}

// WithMergeThreshold sets the batch size at which workers attempt an
// opportunistic merge.
func WithMergeThreshold(mergeThreshold int) func(*Parser) {
	return func(parser *Parser) {
		parser.mergeThreshold = mergeThreshold
	}
}

// WithStrictMode makes the parser reject documents without a 'meta'
// element.
func WithStrictMode(strictMode bool) func(*Parser) {
	return func(parser *Parser) {
		parser.strictMode = strictMode
	}
}

// WithVerbose enables progress and timing output.
func WithVerbose(verbose bool) func(*Parser) {
	return func(parser *Parser) {
		parser.verbose = verbose
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(log zerolog.Logger) func(*Parser) {
	return func(parser *Parser) {
		parser.log = log
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 8
	}
	return n
}

// Ingest is a shorthand for building a parser with the given worker count
// and running it.
func Ingest(filename string, workers int) (*Segment, error) {
	return NewParser(filename, WithWorkers(workers)).Ingest()
}
