// Package collection provides an immutable, homogeneously typed sequence.
//
// New validates every candidate against the element type before anything is
// built, so a failed construction never yields a partial collection:
//
//	routes, err := collection.New[Route](a, b, c)
//	if err != nil {
//	    var mismatch *collection.TypeMismatchError
//	    errors.As(err, &mismatch) // mismatch.Index names the bad element
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package collection
