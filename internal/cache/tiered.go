package cache

import "context"

// Tiered layers a fast primary store over a durable secondary one.
// Reads hit the primary first and promote secondary hits; writes,
// deletes, and invalidations go to both. The secondary tier is
// best-effort: its failures never surface.
type Tiered struct {
	primary   Store
	secondary Store
}

// NewTiered composes the two tiers.
func NewTiered(primary, secondary Store) *Tiered {
	return &Tiered{primary: primary, secondary: secondary}
}

// Get checks the primary tier, falling back to the secondary and
// promoting hits so repeated lookups stay in-process.
func (t *Tiered) Get(ctx context.Context, key string) (*Entry, bool) {
	if e, ok := t.primary.Get(ctx, key); ok {
		return e, true
	}
	e, ok := t.secondary.Get(ctx, key)
	if !ok {
		return nil, false
	}
	_ = t.primary.Set(ctx, key, *e)
	return e, true
}

// Set writes to both tiers.
func (t *Tiered) Set(ctx context.Context, key string, e Entry) error {
	err := t.primary.Set(ctx, key, e)
	_ = t.secondary.Set(ctx, key, e)
	return err
}

// Delete removes from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	err := t.primary.Delete(ctx, key)
	_ = t.secondary.Delete(ctx, key)
	return err
}

// InvalidateTags invalidates in both tiers.
func (t *Tiered) InvalidateTags(ctx context.Context, tags ...string) error {
	err := t.primary.InvalidateTags(ctx, tags...)
	_ = t.secondary.InvalidateTags(ctx, tags...)
	return err
}

// Len reports the primary tier's entry count.
func (t *Tiered) Len(ctx context.Context) int {
	return t.primary.Len(ctx)
}

var _ Store = (*Tiered)(nil)
