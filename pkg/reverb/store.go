package reverb

// Store runs setup and wraps its result as a reactive record. It is a
// convenience composition for module-level state containers:
//
//	counter := e.Store(func() map[string]any {
//	    return map[string]any{"count": 0, "step": 1}
//	})
func (e *Engine) Store(setup func() map[string]any) *Rec {
	return e.Reactive(setup()).(*Rec)
}
