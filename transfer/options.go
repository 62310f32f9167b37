package transfer

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/xfer/buffer"
	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/compress"
	"github.com/arloliu/xfer/errs"
	"github.com/arloliu/xfer/internal/options"
	"github.com/arloliu/xfer/message"
)

// Defaults applied by NewUploader.
const (
	DefaultBlockSize   = 4 * 1024 * 1024
	DefaultSegmentSize = message.DefaultSegmentSize
	DefaultConcurrency = 4
)

// Config holds the tunables of an Uploader.
type Config struct {
	blockSize   int
	segmentSize int64
	concurrency int
	maxBuffers  int
	algorithm   checksum.Algorithm
	compression compress.Type
	logger      *slog.Logger
	idPrefix    string
}

func newConfig() *Config {
	return &Config{
		blockSize:   DefaultBlockSize,
		segmentSize: DefaultSegmentSize,
		concurrency: DefaultConcurrency,
		algorithm:   checksum.Auto,
		compression: compress.None,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Validate checks the combined configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.maxBuffers == 0 {
		c.maxBuffers = max(buffer.MinPoolBuffers, c.concurrency+1)
	}
	if c.maxBuffers < buffer.MinPoolBuffers {
		return fmt.Errorf("%w: max buffers %d below %d", errs.ErrInvalidPoolSize, c.maxBuffers, buffer.MinPoolBuffers)
	}

	// A block that compresses badly may grow a little, so leave headroom.
	flags, err := message.FlagsFor(c.algorithm)
	if err == nil && flags.HasCRC64() {
		worst := int64(c.blockSize) + int64(c.blockSize)/8 + 64
		if _, err := message.NewLayout(worst, c.segmentSize, flags); err != nil {
			return fmt.Errorf("block size %d with segment size %d: %w", c.blockSize, c.segmentSize, err)
		}
	}

	return nil
}

// Option configures an Uploader.
type Option = options.Option[*Config]

// WithBlockSize sets the size of every staged block except possibly the last.
// Default is 4 MiB.
func WithBlockSize(size int) Option {
	return options.New(func(c *Config) error {
		if size < 1 {
			return fmt.Errorf("%w: block size %d", errs.ErrInvalidSize, size)
		}
		c.blockSize = size

		return nil
	})
}

// WithSegmentSize sets the structured message segment size used when blocks are
// framed with CRC-64. Default is 4 MiB.
func WithSegmentSize(size int64) Option {
	return options.New(func(c *Config) error {
		if size < 1 {
			return fmt.Errorf("%w: segment size %d", errs.ErrInvalidSize, size)
		}
		c.segmentSize = size

		return nil
	})
}

// WithConcurrency sets the number of blocks staged in parallel. Default is 4.
func WithConcurrency(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency %d", errs.ErrInvalidSize, n)
		}
		c.concurrency = n

		return nil
	})
}

// WithMaxBuffers bounds the number of block buffers in memory at once. Default is
// one more than the concurrency.
func WithMaxBuffers(n int) Option {
	return options.New(func(c *Config) error {
		if n < buffer.MinPoolBuffers {
			return fmt.Errorf("%w: max buffers %d below %d", errs.ErrInvalidPoolSize, n, buffer.MinPoolBuffers)
		}
		c.maxBuffers = n

		return nil
	})
}

// WithChecksum selects how staged blocks are protected:
//   - checksum.None: raw body, no checksum
//   - checksum.Auto, checksum.StorageCRC64: structured message with CRC-64
//   - checksum.MD5: raw body with a Content-MD5 header
//
// Default is checksum.Auto.
func WithChecksum(alg checksum.Algorithm) Option {
	return options.New(func(c *Config) error {
		switch alg {
		case checksum.None, checksum.Auto, checksum.StorageCRC64, checksum.MD5:
			c.algorithm = alg
			return nil
		default:
			return fmt.Errorf("%w: %s", errs.ErrInvalidAlgorithm, alg)
		}
	})
}

// WithCompression compresses every block before it is framed. Default is
// compress.None.
func WithCompression(t compress.Type) Option {
	return options.New(func(c *Config) error {
		if _, err := compress.GetCodec(t); err != nil {
			return err
		}
		c.compression = t

		return nil
	})
}

// WithLogger sets the logger. Default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithBlockIDPrefix fixes the key from which block IDs are derived. By default each
// Upload call derives a fresh key.
func WithBlockIDPrefix(prefix string) Option {
	return options.NoError(func(c *Config) {
		c.idPrefix = prefix
	})
}
