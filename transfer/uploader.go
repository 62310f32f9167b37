package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/xfer/buffer"
	"github.com/arloliu/xfer/checksum"
	"github.com/arloliu/xfer/compress"
	"github.com/arloliu/xfer/internal/hash"
	"github.com/arloliu/xfer/internal/options"
	"github.com/arloliu/xfer/internal/pool"
	"github.com/arloliu/xfer/message"
)

// HeaderContentEncoding names the codec applied to a compressed block body.
const HeaderContentEncoding = "Content-Encoding"

// readChunkSize is the size of each read from the upload source.
const readChunkSize = 64 * 1024

// Block is one staged piece of an upload.
type Block struct {
	// ID identifies the block in the commit list.
	ID string
	// Index is the position of the block in the upload, starting at 0.
	Index int
	// Offset is the position of the block's first content byte in the source.
	Offset int64
	// ContentLength is the number of source bytes the block carries.
	ContentLength int64
	// Body is what goes on the wire: a structured message or the raw, possibly
	// compressed, content. It is only valid until StageBlock returns.
	Body []byte
	// Header holds the request headers describing Body.
	Header http.Header
	// Encoding is the codec applied to the content before framing.
	Encoding compress.Type
}

// BlockTransport is the storage service side of an upload.
//
// StageBlock is called concurrently from up to the configured number of workers
// and must copy Body if it keeps it. CommitBlocks is called once, after every
// block staged, with the IDs in source order.
type BlockTransport interface {
	StageBlock(ctx context.Context, b Block) error
	CommitBlocks(ctx context.Context, ids []string, totalLength int64) error
}

// Result summarizes a committed upload.
type Result struct {
	BlockIDs      []string
	ContentLength int64
	// BodyLength is the number of bytes staged, framing and compression included.
	BodyLength int64
}

// Uploader splits a byte stream into blocks and stages them concurrently.
type Uploader struct {
	transport BlockTransport
	cfg       *Config
	codec     compress.Codec
	flags     message.Flags
	uploads   atomic.Uint64
}

// NewUploader creates an uploader staging blocks through transport.
func NewUploader(transport BlockTransport, opts ...Option) (*Uploader, error) {
	if transport == nil {
		return nil, errors.New("transfer: nil transport")
	}

	cfg := newConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		return nil, err
	}

	var flags message.Flags
	if cfg.algorithm != checksum.MD5 {
		if flags, err = message.FlagsFor(cfg.algorithm); err != nil {
			return nil, err
		}
	}

	return &Uploader{
		transport: transport,
		cfg:       cfg,
		codec:     codec,
		flags:     flags,
	}, nil
}

type job struct {
	id     string
	index  int
	offset int64
	agg    *buffer.Aggregator
}

// Upload reads r to EOF, stages it as blocks and commits them.
//
// The source is read by one goroutine into a bounded buffer pool, so at most the
// configured number of blocks are held in memory: a slow transport stalls reading.
// The first failure cancels all outstanding work and is returned; nothing is
// committed after a failure.
func (u *Uploader) Upload(ctx context.Context, r io.Reader) (Result, error) {
	stager, err := buffer.NewPool(u.cfg.blockSize, buffer.MinPoolBuffers, u.cfg.maxBuffers)
	if err != nil {
		return Result{}, err
	}

	prefix := u.cfg.idPrefix
	if prefix == "" {
		prefix = strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(u.uploads.Add(1), 36)
	}
	logger := u.cfg.logger.With(slog.String("upload", prefix))

	var (
		ids       []string
		total     int64
		bodyBytes atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job)

	for range u.cfg.concurrency {
		g.Go(func() error {
			for j := range jobs {
				n, err := u.stage(gctx, j, logger)
				stager.Release(j.agg)
				if err != nil {
					return err
				}
				bodyBytes.Add(n)
			}

			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)

		emit := func(a *buffer.Aggregator) error {
			// a belongs to a worker once sent
			size := int64(a.Size())
			j := job{
				id:     hash.BlockID(prefix, len(ids)),
				index:  len(ids),
				offset: total,
				agg:    a,
			}
			select {
			case jobs <- j:
			case <-gctx.Done():
				stager.Release(a)
				return gctx.Err()
			}
			ids = append(ids, j.id)
			total += size

			return nil
		}

		scratch := make([]byte, min(readChunkSize, u.cfg.blockSize))
		for {
			n, err := r.Read(scratch)
			if n > 0 {
				if werr := stager.Write(gctx, scratch[:n], emit); werr != nil {
					return werr
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("transfer: read source: %w", err)
			}
		}

		return stager.Flush(emit)
	})

	if err := g.Wait(); err != nil {
		logger.Warn("upload failed", slog.Int("staged_blocks", len(ids)), slog.Any("error", err))
		return Result{}, err
	}

	if err := u.transport.CommitBlocks(ctx, ids, total); err != nil {
		logger.Warn("commit failed", slog.Int("blocks", len(ids)), slog.Any("error", err))
		return Result{}, fmt.Errorf("transfer: commit %d blocks: %w", len(ids), err)
	}

	logger.Info("upload committed",
		slog.Int("blocks", len(ids)),
		slog.Int64("content_length", total),
		slog.Int64("body_length", bodyBytes.Load()),
	)

	return Result{BlockIDs: ids, ContentLength: total, BodyLength: bodyBytes.Load()}, nil
}

// stage compresses, frames and sends one block, returning the body length.
func (u *Uploader) stage(ctx context.Context, j job, logger *slog.Logger) (int64, error) {
	content := j.agg.Bytes()
	header := make(http.Header)

	body, err := u.codec.Compress(content)
	if err != nil {
		return 0, fmt.Errorf("transfer: compress block %d: %w", j.index, err)
	}
	if enc := u.cfg.compression.ContentEncoding(); enc != "" {
		header.Set(HeaderContentEncoding, enc)
	}

	switch {
	case u.flags.HasCRC64():
		frame := pool.GetFrameBuffer()
		defer pool.PutFrameBuffer(frame)

		message.SetRequestHeaders(header, int64(len(body)))
		if body, err = frameBlock(frame, body, u.cfg.segmentSize, u.flags); err != nil {
			return 0, fmt.Errorf("transfer: frame block %d: %w", j.index, err)
		}
	case u.cfg.algorithm == checksum.MD5:
		digest := checksum.NewMD5()
		digest.Update(body)
		if err := checksum.SetHeader(header, digest); err != nil {
			return 0, err
		}
	}

	b := Block{
		ID:            j.id,
		Index:         j.index,
		Offset:        j.offset,
		ContentLength: int64(len(content)),
		Body:          body,
		Header:        header,
		Encoding:      u.cfg.compression,
	}
	if err := u.transport.StageBlock(ctx, b); err != nil {
		return 0, fmt.Errorf("transfer: stage block %d: %w", j.index, err)
	}

	logger.Debug("block staged",
		slog.Int("index", j.index),
		slog.String("id", j.id),
		slog.Int64("offset", j.offset),
		slog.Int("content_length", len(content)),
		slog.Int("body_length", len(body)),
	)

	return int64(len(body)), nil
}

// frameBlock encodes body as a structured message into frame's storage.
func frameBlock(frame *pool.ByteBuffer, body []byte, segmentSize int64, flags message.Flags) ([]byte, error) {
	enc, err := message.NewEncoder(int64(len(body)), segmentSize, flags)
	if err != nil {
		return nil, err
	}

	size := int(enc.MessageLength())
	frame.Grow(size)
	dst := frame.B[:size]

	nDst, _, err := enc.Transform(dst, body, true)
	if err != nil {
		return nil, err
	}

	return dst[:nDst], nil
}
