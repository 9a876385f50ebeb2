package fs

// Dirent names an inode in the root directory.
type Dirent struct {
	Name  string
	Inode *Inode
}
