package chunker

// Chunk sizes, in tokens, offered for transcript indexing.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 32
)

// ChunkSizes lists the selectable chunk sizes in descending order.
var ChunkSizes = []int{1024, 512, 256, 128}

var kForSize = map[int]int{1024: 3, 512: 5, 256: 10, 128: 20}

// KForChunkSize returns how many chunks to retrieve for a question when a
// transcript was indexed with the given chunk size. Smaller chunks retrieve more.
func KForChunkSize(size int) int {
	for _, s := range ChunkSizes {
		if size >= s {
			return kForSize[s]
		}
	}
	return kForSize[ChunkSizes[len(ChunkSizes)-1]]
}
