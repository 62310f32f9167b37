package transfer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/compress"
	"github.com/arloliu/xfer/errs"
)

// MemoryTransport is a BlockTransport holding blocks in memory, verifying and
// assembling them on commit as a storage service would.
type MemoryTransport struct {
	algorithm checksum.Algorithm

	mu      sync.Mutex
	staged  map[string]Block
	blob    []byte
	commits int
}

var _ BlockTransport = (*MemoryTransport)(nil)

// NewMemoryTransport creates an empty transport verifying bodies that are not
// structured messages with alg.
func NewMemoryTransport(alg checksum.Algorithm) *MemoryTransport {
	return &MemoryTransport{
		algorithm: alg,
		staged:    make(map[string]Block),
	}
}

// StageBlock keeps a copy of b. Staging an ID again replaces the earlier block.
// A zero Encoding is taken as compress.None.
func (m *MemoryTransport) StageBlock(ctx context.Context, b Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.Body = bytes.Clone(b.Body)
	b.Header = b.Header.Clone()
	if b.Header == nil {
		b.Header = make(http.Header)
	}
	if b.Encoding == 0 {
		b.Encoding = compress.None
	}

	m.mu.Lock()
	m.staged[b.ID] = b
	m.mu.Unlock()

	return nil
}

// CommitBlocks verifies the listed blocks and replaces the blob with their content
// in list order.
func (m *MemoryTransport) CommitBlocks(ctx context.Context, ids []string, totalLength int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var blob bytes.Buffer
	for _, id := range ids {
		b, ok := m.staged[id]
		if !ok {
			return fmt.Errorf("%w: %s", errs.ErrUnknownBlock, id)
		}
		if _, err := Download(ctx, &blob, bytes.NewReader(b.Body), b.Header, m.algorithm, b.Encoding); err != nil {
			return fmt.Errorf("block %d (%s): %w", b.Index, id, err)
		}
	}
	if int64(blob.Len()) != totalLength {
		return fmt.Errorf("%w: got %d bytes, declared %d", errs.ErrCommitLengthMismatch, blob.Len(), totalLength)
	}

	m.blob = blob.Bytes()
	m.staged = make(map[string]Block)
	m.commits++

	return nil
}

// Block returns a staged, not yet committed block.
func (m *MemoryTransport) Block(id string) (Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.staged[id]

	return b, ok
}

// Staged returns the number of blocks awaiting commit.
func (m *MemoryTransport) Staged() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.staged)
}

// Commits returns the number of successful commits.
func (m *MemoryTransport) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.commits
}

// Bytes returns the committed blob.
func (m *MemoryTransport) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.blob
}
