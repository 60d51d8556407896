package frame

// EventKind identifies what the upstream correlation stage matched.
type EventKind int

const (
	KindSyncWord EventKind = iota
)

// SyncEvent marks a pattern match in the recovered byte stream.  Offset is
// the absolute position, in bytes since stream start, of the byte at which
// the match concluded -- the first payload byte.
type SyncEvent struct {
	Kind   EventKind
	Offset uint64
}
