package compute

type Backend interface {
	Name() string
	Workers() int
	// Chunks reports how many chunks ParallelFor uses for n items.
	Chunks(n, minChunk int) int
	// ParallelFor runs fn over contiguous chunks of [0, n) and returns once
	// every chunk has finished. A panic in fn is re-raised on the caller.
	ParallelFor(n, minChunk int, fn func(chunk, start, end int))
}

var activeBackend Backend = NewCPUBackend()

func SetBackend(b Backend) {
	if b == nil {
		b = NewCPUBackend()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// Serial runs every chunk inline on the calling goroutine.
type Serial struct{}

func NewSerialBackend() Serial { return Serial{} }

func (Serial) Name() string               { return "serial" }
func (Serial) Workers() int               { return 1 }
func (Serial) Chunks(n, minChunk int) int { return 1 }

func (Serial) ParallelFor(n, minChunk int, fn func(chunk, start, end int)) {
	if n > 0 {
		fn(0, 0, n)
	}
}
