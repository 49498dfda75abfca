package block

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/megaeth-labs/mega-evm-sub000/megatypes"
	protobuf "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const batchFilenameFormat = "mega_receipts_batch_%010d_%d.pb"

var (
	ErrOutputDirRequired = errors.New("output directory is required")
	ErrBatchSizeRequired = errors.New("batch size must be greater than zero")
)

// CollectorConfig configures a Collector's on-disk batching behaviour.
type CollectorConfig struct {
	OutputDir string
	BatchSize int
}

// ReceiptRecord is one block's worth of receipts, paired with its block
// number, handed to a Collector for asynchronous persistence.
type ReceiptRecord struct {
	BlockNumber uint64
	Output      *megatypes.BlockOutput
}

// Collector asynchronously batches ReceiptRecords to protobuf files on
// disk, one goroutine per collector, grounded on
// arbitrum/multigas/collector.go's channel-fed batch-writer shape. Encoding
// uses structpb.Struct as the wire envelope rather than a hand-generated
// .proto message type, since this repo carries no protoc-generated package
// for a receipt schema.
type Collector struct {
	config CollectorConfig
	input  <-chan *ReceiptRecord
	wg     sync.WaitGroup

	mu       sync.Mutex
	buffer   []*structpb.Struct
	batchNum uint64
}

// NewCollector starts a Collector consuming from input until it is closed.
func NewCollector(config CollectorConfig, input <-chan *ReceiptRecord) (*Collector, error) {
	if config.OutputDir == "" {
		return nil, ErrOutputDirRequired
	}
	if config.BatchSize <= 0 {
		return nil, ErrBatchSizeRequired
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("block: create output dir: %w", err)
	}

	c := &Collector{config: config, input: input, buffer: make([]*structpb.Struct, 0, config.BatchSize)}
	c.wg.Add(1)
	go c.processData()
	return c, nil
}

func (c *Collector) processData() {
	defer c.wg.Done()
	for rec := range c.input {
		s, err := recordToStruct(rec)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.buffer = append(c.buffer, s)
		if len(c.buffer) >= c.config.BatchSize {
			_ = c.flushBatch()
		}
		c.mu.Unlock()
	}
	c.mu.Lock()
	if len(c.buffer) > 0 {
		_ = c.flushBatch()
	}
	c.mu.Unlock()
}

func (c *Collector) flushBatch() error {
	if len(c.buffer) == 0 {
		return nil
	}
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(c.buffer))}
	for i, s := range c.buffer {
		list.Values[i] = structpb.NewStructValue(s)
	}
	data, err := protobuf.Marshal(list)
	if err != nil {
		return fmt.Errorf("block: marshal batch: %w", err)
	}
	name := fmt.Sprintf(batchFilenameFormat, c.batchNum, time.Now().Unix())
	if err := os.WriteFile(filepath.Join(c.config.OutputDir, name), data, 0o644); err != nil {
		return fmt.Errorf("block: write batch file: %w", err)
	}
	c.buffer = c.buffer[:0]
	c.batchNum++
	return nil
}

// Wait blocks until the collector has drained its input channel and written
// every pending batch. Callers must close the input channel first.
func (c *Collector) Wait() {
	c.wg.Wait()
}

func recordToStruct(rec *ReceiptRecord) (*structpb.Struct, error) {
	receipts := make([]interface{}, 0, len(rec.Output.Receipts))
	for _, r := range rec.Output.Receipts {
		receipts = append(receipts, map[string]interface{}{
			"outcome":  int(r.Outcome),
			"gas_used": float64(r.GasUsed),
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"block_number": float64(rec.BlockNumber),
		"receipts":     receipts,
	})
}
