package reconcile

import "errors"

// ErrReferentialInconsistency is returned when a session record references a
// module or UE that is absent from the feed's own reference mappings. The
// parser derives the mappings from the same records, so this is checked
// defensively and aborts the whole batch.
var ErrReferentialInconsistency = errors.New("reconcile: feed record references an unknown module or UE")
