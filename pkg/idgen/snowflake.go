package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Snowflake layout, 64 bits:
//
//	0 - 41 bit millisecond timestamp - 10 bit worker id - 12 bit sequence
//
// Ids are unique across workers, trend upward for index locality, and do
// not leak daily volumes the way a plain counter would.
const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init sets up the default generator. workerID must be unique per instance.
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID must be between 0 and %d", maxWorkerID)
		}
		defaultGenerator = &Snowflake{workerID: workerID}
	})
}

// NextID returns the next id from the default generator.
func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// sequence exhausted for this millisecond, spin to the next
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// GenerateTransferNo builds the correlating identifier shared by the two
// ledger entries of one transfer.
// Format: TRF + yyyyMMddHHmmss + 8 trailing digits of a snowflake id.
func GenerateTransferNo() string {
	id := NextID()
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("TRF%s%08d", timestamp, id%100000000)
}
