package fs

// Inode is the on-disk record of one file. Its length is fixed when the
// file is created; writes never grow it.
type Inode struct {
	ID uint64

	data []byte

	// openCount counts live File handles. A removed inode is reclaimed
	// when it drops to zero.
	openCount int

	// denyWrite counts handles currently refusing writes to this inode.
	denyWrite int

	removed bool
}

func (i *Inode) Length() int64 {
	return int64(len(i.data))
}

// Removed reports whether the inode's name has been unlinked.
func (i *Inode) Removed() bool {
	return i.removed
}

// Bytes returns the inode contents. Callers must not retain the slice past
// the next write.
func (i *Inode) Bytes() []byte {
	return i.data
}
