package batch

import (
	"encoding/csv"
	"io"
	"strconv"
)

var traceHeader = []string{
	"frame", "renderable", "pass", "iteration", "blended", "distance", "priority", "shader", "detail",
}

// TraceWriter is a Visitor that writes one CSV row per draw. Errors are sticky and
// reported by Flush.
type TraceWriter struct {
	NopVisitor

	w     *csv.Writer
	queue *Queue
	frame uint64
	rows  int
}

// NewTraceWriter writes the header row to out and returns the writer.
func NewTraceWriter(out io.Writer) *TraceWriter {
	w := csv.NewWriter(out)
	_ = w.Write(traceHeader)
	return &TraceWriter{w: w}
}

func (t *TraceWriter) StartTraversal(q *Queue, frameID uint64) {
	t.queue = q
	t.frame = frameID
}

func (t *TraceWriter) Visit(r *Renderable, pass *MaterialPass, iteration int) {
	idx := 0
	for i := range r.Material.Passes {
		if &r.Material.Passes[i] == pass {
			idx = i
			break
		}
	}
	distance := float32(-1)
	if t.queue != nil {
		distance = t.queue.NearDistance(r)
	}
	_ = t.w.Write([]string{
		strconv.FormatUint(t.frame, 10),
		r.Node.String(),
		strconv.Itoa(idx),
		strconv.Itoa(iteration),
		strconv.FormatBool(pass.Blend.IsBlended()),
		strconv.FormatFloat(float64(distance), 'f', 3, 32),
		strconv.Itoa(int(r.Priority)),
		strconv.FormatUint(uint64(pass.Shader), 10),
		r.DetailLevel.String(),
	})
	t.rows++
}

// Rows returns the number of draw rows written.
func (t *TraceWriter) Rows() int { return t.rows }

// Flush writes any buffered rows and returns the first write error.
func (t *TraceWriter) Flush() error {
	t.w.Flush()
	return t.w.Error()
}
