// Package transfer moves byte streams to and from block storage with end-to-end
// integrity checks.
//
// An Uploader reads a source into a bounded buffer pool, cuts it into fixed-size
// blocks, optionally compresses each one, protects it with a CRC-64 structured
// message or an MD5 header, and stages blocks concurrently through a BlockTransport
// before committing the block list:
//
//	up, err := transfer.NewUploader(transport,
//	    transfer.WithBlockSize(8<<20),
//	    transfer.WithConcurrency(8),
//	    transfer.WithCompression(compress.Zstd),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := up.Upload(ctx, file)
//
// Download is the reverse path for one response body: it decodes or verifies the
// body according to its headers, decompresses it, and writes the content.
//
// The network side lives behind BlockTransport. MemoryTransport is a complete
// in-memory implementation, useful for tests and demos.
package transfer
