package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/klauspost/compress/zstd"
)

// Encoders and decoders are pooled; both allocate heavily on creation and are
// allocation-free once warmed up.
var (
	encoderPool = sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
			}
			return enc
		},
	}
	decoderPool = sync.Pool{
		New: func() any {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
			}
			return dec
		},
	}
)

// encodeDocument returns doc as zstd-compressed JSON and the uncompressed size.
func encodeDocument(doc *artifact.Document) ([]byte, int, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode document: %w", err)
	}

	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)
	return enc.EncodeAll(raw, nil), len(raw), nil
}

func decodeDocument(body []byte) (*artifact.Document, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	var doc artifact.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
