package metastore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Key namespace, mirroring the original RocksDB store's convention:
//
//	inode:<id>        -> JSON-encoded Inode
//	path:<path>        -> 8-byte little-endian inode id
//	dirty:<path>       -> empty value, presence means dirty
//	counter:inode       -> 8-byte little-endian next-inode-id counter
const (
	prefixInode   = "inode:"
	prefixPath    = "path:"
	prefixDirty   = "dirty:"
	keyInodeCount = "counter:inode"

	// firstInodeID matches the original store, which reserves low IDs
	// for NFS well-known file handles (root is always 1).
	firstInodeID uint64 = 100
)

func keyInode(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", prefixInode, id))
}

func keyPath(path string) []byte {
	return []byte(prefixPath + path)
}

func keyDirty(path string) []byte {
	return []byte(prefixDirty + path)
}

func encodeInode(inode *Inode) ([]byte, error) {
	data, err := json.Marshal(inode)
	if err != nil {
		return nil, fmt.Errorf("%w: encode inode: %v", vibeerr.ErrIO, err)
	}
	return data, nil
}

func decodeInode(data []byte) (*Inode, error) {
	var inode Inode
	if err := json.Unmarshal(data, &inode); err != nil {
		return nil, fmt.Errorf("%w: decode inode: %v", vibeerr.ErrIO, err)
	}
	return &inode, nil
}

func encodeInodeID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)
	return buf
}

func decodeInodeID(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: inode id value has wrong length %d", vibeerr.ErrIO, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
