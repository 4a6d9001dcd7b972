package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/PxPatel/auction-engine/internal/types"
)

// FileTradeFeed implements TradeFeed as an append-only JSON lines file,
// one trade per line in execution order.
type FileTradeFeed struct {
	file    *os.File
	encoder *json.Encoder
	mutex   sync.Mutex
}

// NewFileTradeFeed opens (or creates) the trade log at filePath
func NewFileTradeFeed(filePath string) (*FileTradeFeed, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}

	return &FileTradeFeed{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileTradeFeed) Publish(ctx context.Context, trades []types.Trade) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for i := range trades {
		if err := f.encoder.Encode(&trades[i]); err != nil {
			return fmt.Errorf("write trade %s: %w", trades[i].ID, err)
		}
	}
	return nil
}

func (f *FileTradeFeed) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file != nil {
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}
