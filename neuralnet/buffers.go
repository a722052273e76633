package neuralnet

// bufferArena hands out views into one slab. Every view is capacity-capped so
// an append on it reallocates instead of writing into the next view.
type bufferArena struct {
	slab []float32
	off  int
}

func newBufferArena(total int) *bufferArena {
	return &bufferArena{slab: make([]float32, total)}
}

func (a *bufferArena) take(n int) []float32 {
	end := a.off + n
	if end > len(a.slab) {
		panic("buffer arena exhausted")
	}
	v := a.slab[a.off:end:end]
	a.off = end
	return v
}

// layerBuffers is the set of four views a neuron layer exposes to its neighbours.
type layerBuffers struct {
	signalIn, signalOut, errorIn, errorOut []float32
}

func (a *bufferArena) takeLayer(n int) layerBuffers {
	return layerBuffers{
		signalIn:  a.take(n),
		signalOut: a.take(n),
		errorIn:   a.take(n),
		errorOut:  a.take(n),
	}
}

// bind replaces the layer's own buffers with arena views.
func (b layerBuffers) bind(l *NeuronLayer) error {
	if err := l.SetSignalIn(b.signalIn); err != nil {
		return err
	}
	if err := l.SetSignalOut(b.signalOut); err != nil {
		return err
	}
	if err := l.SetErrorIn(b.errorIn); err != nil {
		return err
	}
	return l.SetErrorOut(b.errorOut)
}
