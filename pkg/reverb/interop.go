package reverb

// IsRef reports whether v is a value cell (a Ref or a ref-shaped view
// from ToRef).
func IsRef(v any) bool {
	_, ok := v.(RefValue)
	return ok
}

// Unref returns v's cell value when v is a ref, otherwise v unchanged.
func Unref(v any) any {
	if rv, ok := v.(RefValue); ok {
		return rv.Value()
	}
	return v
}

// ToRef returns a ref-shaped view over one record key. The view keeps
// no bookkeeping of its own: reads and writes delegate to the record,
// so tracking and triggering flow through the record's own (target,
// key) entry.
func ToRef(r *Rec, key string) RefValue {
	return &recRef{rec: r, key: key}
}

// ToRefs returns a ref-shaped view for every current key of the
// record. Keys added later are not included.
func ToRefs(r *Rec) map[string]RefValue {
	st := r.state
	st.mu.RLock()
	refs := make(map[string]RefValue, len(st.data))
	for k := range st.data {
		refs[k] = &recRef{rec: r, key: k}
	}
	st.mu.RUnlock()
	return refs
}

// recRef is the pass-through cell behind ToRef/ToRefs.
type recRef struct {
	rec *Rec
	key string
}

func (r *recRef) Value() any     { return r.rec.Get(r.key) }
func (r *recRef) SetValue(v any) { r.rec.Set(r.key, v) }
func (r *recRef) isRef()         {}
