package batch

// Visitor receives the draw stream of Queue.Traverse. A GPU backend turns the
// callbacks into state changes and draw calls.
type Visitor interface {
	StartTraversal(q *Queue, frameID uint64)
	// ChangeRenderGroup is called before the first draw of each group; prev is nil
	// at the start of every pass layer.
	ChangeRenderGroup(prev, next *GroupKey)
	ChangeMaterialPass(prev, next *MaterialPass)
	// ApplyLights is called before each draw of Once and N passes.
	ApplyLights(lights []Light)
	// ChangeLight is called before each draw of a once-per-light pass.
	ChangeLight(prev, next *Light)
	Visit(r *Renderable, pass *MaterialPass, iteration int)
	EndTraversal(q *Queue)
}

// NopVisitor implements every Visitor method as a no-op. Embed it to handle a subset.
type NopVisitor struct{}

func (NopVisitor) StartTraversal(*Queue, uint64)                   {}
func (NopVisitor) ChangeRenderGroup(*GroupKey, *GroupKey)          {}
func (NopVisitor) ChangeMaterialPass(*MaterialPass, *MaterialPass) {}
func (NopVisitor) ApplyLights([]Light)                             {}
func (NopVisitor) ChangeLight(*Light, *Light)                      {}
func (NopVisitor) Visit(*Renderable, *MaterialPass, int)           {}
func (NopVisitor) EndTraversal(*Queue)                             {}

type tee []Visitor

// Tee returns a Visitor forwarding every callback to each of vs in order.
func Tee(vs ...Visitor) Visitor {
	return tee(vs)
}

func (t tee) StartTraversal(q *Queue, frameID uint64) {
	for _, v := range t {
		v.StartTraversal(q, frameID)
	}
}

func (t tee) ChangeRenderGroup(prev, next *GroupKey) {
	for _, v := range t {
		v.ChangeRenderGroup(prev, next)
	}
}

func (t tee) ChangeMaterialPass(prev, next *MaterialPass) {
	for _, v := range t {
		v.ChangeMaterialPass(prev, next)
	}
}

func (t tee) ApplyLights(lights []Light) {
	for _, v := range t {
		v.ApplyLights(lights)
	}
}

func (t tee) ChangeLight(prev, next *Light) {
	for _, v := range t {
		v.ChangeLight(prev, next)
	}
}

func (t tee) Visit(r *Renderable, pass *MaterialPass, iteration int) {
	for _, v := range t {
		v.Visit(r, pass, iteration)
	}
}

func (t tee) EndTraversal(q *Queue) {
	for _, v := range t {
		v.EndTraversal(q)
	}
}
