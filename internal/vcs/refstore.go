package vcs

// RefStore is a small key/value ref namespace riding on top of the same
// object database as everything else: a value is stored as a blob object,
// and a plain ref (outside refs/heads, refs/remotes) points at it directly.
// internal/backup uses this to persist backup entries without needing any
// storage mechanism beyond what the Repo abstraction already offers.
type RefStore interface {
	WriteRef(name string, data []byte) error
	ReadRef(name string) (data []byte, ok bool, err error)
	DeleteRef(name string) error
	ListRefs(prefix string) ([]string, error)
}
