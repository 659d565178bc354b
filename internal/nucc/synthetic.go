package nucc

import "github.com/distr1/xfbin/internal/structinfo"

// Synthetic StructInfo constants reserved at the start of every page, per
// the original's default_chunk_info() for Null/Page/Index chunks.
var (
	SyntheticNull  = structinfo.Info{ChunkType: "nuccChunkNull", FilePath: "", ChunkName: ""}
	SyntheticPage  = structinfo.Info{ChunkType: "nuccChunkPage", FilePath: "", ChunkName: "Page0"}
	SyntheticIndex = structinfo.Info{ChunkType: "nuccChunkIndex", FilePath: "", ChunkName: "index"}
)
