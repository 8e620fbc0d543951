package overlay

import "context"

// FileSystem is the narrow surface the NFS server drives. It exists so
// the wire layer (internal/nfsserver) depends on this interface instead
// of importing metastore/gitadapter directly — one concrete
// implementation (*Engine), no dispatch hierarchy.
type FileSystem interface {
	Lookup(ctx context.Context, parentID uint64, name string) (uint64, Attr, error)
	GetAttr(ctx context.Context, inodeID uint64) (Attr, error)
	SetAttr(ctx context.Context, inodeID uint64) (Attr, error)
	Read(ctx context.Context, inodeID uint64, offset int64, count int) ([]byte, bool, error)
	Write(ctx context.Context, inodeID uint64, offset int64, data []byte, now int64) (Attr, error)
	Create(ctx context.Context, parentID uint64, name string, now int64) (uint64, Attr, error)
	Mkdir(ctx context.Context, parentID uint64, name string, now int64) (uint64, Attr, error)
	Remove(ctx context.Context, parentID uint64, name string) error
	Readdir(ctx context.Context, dirID uint64) ([]DirEntry, error)
}

var _ FileSystem = (*Engine)(nil)
