// Package capability provides an ordered, identifier-keyed registry of
// per-request capability instances with lazy defaulting and cheap change
// detection.
//
// A Store maps stable string identifiers to opaque capability instances
// and tracks a revision counter that changes on every successful write.
// A Ref binds one identifier to a default factory and materializes the
// default on first access, atomically with respect to other callers
// against the same store.
//
// # Basic Usage
//
// Create a store, register capabilities, and read them back:
//
//	store := capability.NewStore()
//	if err := store.Set("auth", authState); err != nil {
//		return err
//	}
//
//	v, ok := store.Get("auth")
//
// # Lazy Defaulting
//
// Declare the default for a capability once and share the ref everywhere:
//
//	var itemsRef = capability.NewRef("items", func() *Items {
//		return NewItems()
//	})
//
//	// First access installs the default; later accesses return the
//	// same instance.
//	items, err := itemsRef.FetchOrCreate(store)
//
// # Change Detection
//
// Holders of cached capability references compare revisions instead of
// re-reading the store:
//
//	rev := store.Revision()
//	// ... later ...
//	if store.Revision() != rev {
//		// a capability was added, replaced, or removed
//	}
//
// # Disposal
//
// Dispose releases the store once per lifetime. Instances implementing
// io.Closer are closed in insertion order; a failing close never blocks
// the remaining cleanup, and failures are joined into the returned error.
// Repeated calls are safe no-ops.
package capability
