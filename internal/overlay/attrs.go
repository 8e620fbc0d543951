package overlay

import "github.com/getaifs/vibefs/internal/metastore"

// NodeType distinguishes the two kinds of overlay entries NFSv3 cares
// about; VibeFS never synthesizes character/block devices or sockets.
type NodeType int

const (
	NodeFile NodeType = iota
	NodeDir
)

// Mode bits are fixed per spec: mode/uid/gid are synthesized, not stored,
// since byte-accurate permission preservation is out of scope.
const (
	dirMode  uint32 = 0o755
	fileMode uint32 = 0o644
)

// Attr is the narrow attribute view the NFS server renders into fattr3.
type Attr struct {
	InodeID uint64
	Type    NodeType
	Mode    uint32
	UID     uint32
	GID     uint32
	Size    uint64
	Mtime   int64
}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	InodeID uint64
	Name    string
	Type    NodeType
}

func attrFromInode(id uint64, inode *metastore.Inode, uid, gid uint32) Attr {
	typ := NodeFile
	mode := fileMode
	if inode.IsDir {
		typ = NodeDir
		mode = dirMode
	}
	return Attr{
		InodeID: id,
		Type:    typ,
		Mode:    mode,
		UID:     uid,
		GID:     gid,
		Size:    inode.Size,
		Mtime:   inode.Mtime,
	}
}
