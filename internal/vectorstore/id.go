package vectorstore

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// embeddingNamespace scopes embedding ids so they never collide with other v5 UUIDs.
var embeddingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vaultindex:embedding"))

// EmbeddingID derives a stable id for a document from its virtual and physical paths.
// Each part is length-prefixed, so no choice of separator characters can make two
// different pairs encode to the same bytes.
func EmbeddingID(virtualPath, physicalPath string) string {
	buf := make([]byte, 0, 16+len(virtualPath)+len(physicalPath))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(virtualPath)))
	buf = append(buf, virtualPath...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(physicalPath)))
	buf = append(buf, physicalPath...)
	return uuid.NewSHA1(embeddingNamespace, buf).String()
}
