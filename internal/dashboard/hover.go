package dashboard

// Highlighter applies hover highlights on a single goroutine. Only the
// latest pending id is kept, so a burst of hover events costs one redraw
// and the last hover always wins.
type Highlighter struct {
	d       *Dashboard
	pending chan string
	done    chan struct{}
}

// NewHighlighter starts the highlight worker. Close stops it.
func (d *Dashboard) NewHighlighter() *Highlighter {
	h := &Highlighter{d: d, pending: make(chan string, 1), done: make(chan struct{})}
	go h.run()
	return h
}

func (h *Highlighter) run() {
	defer close(h.done)
	last := h.d.store.Get().HighlightedTopazID
	for id := range h.pending {
		if id == last {
			continue
		}
		last = id
		h.d.HighlightSubcatchment(id)
	}
}

// Hover queues id, replacing any id not yet applied. It never blocks.
func (h *Highlighter) Hover(id string) {
	for {
		select {
		case h.pending <- id:
			return
		default:
		}
		select {
		case <-h.pending:
		default:
		}
	}
}

// Close applies the pending id, if any, and stops the worker. Hover must
// not be called afterwards.
func (h *Highlighter) Close() {
	close(h.pending)
	<-h.done
}
