package block

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Yield is the cooperative scheduling hand-off described in the source's
// context_switch(false): callers spinning on a completion flag must not
// spin hot, but there is no preemption to rely on either. It is a
// variable so tests (and any future green-thread runtime) can substitute
// their own suspension point; it defaults to yielding the OS thread.
var Yield = runtime.Gosched

// Pipeline drains a Device's block requests through the chunked
// submit-and-spin protocol described in the spec: any transfer larger
// than MaxSectorsPerRequest sectors is split into chunks, each chunk is
// submitted and waited on before the next is issued.
type Pipeline struct {
	Device Device
	Log    *zap.Logger
}

// NewPipeline constructs a Pipeline over dev. A nil logger is replaced
// with a no-op logger.
func NewPipeline(dev Device, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Device: dev, Log: log}
}

// Submit performs a single logical read or write of extent.LengthByte
// bytes at extent.Block into/from mem, chunking internally as needed and
// yielding cooperatively while each chunk completes.
func (p *Pipeline) Submit(extent Extent, mem []byte, read bool) error {
	if uint64(len(mem)) < extent.LengthByte {
		return fmt.Errorf("block: mem buffer too small: have %d need %d", len(mem), extent.LengthByte)
	}
	sectors := extent.Sectors()
	var sector uint64
	for sector < sectors {
		chunk := sectors - sector
		if chunk > MaxSectorsPerRequest {
			chunk = MaxSectorsPerRequest
		}
		chunkBytes := chunk * SectorSize
		off := sector * SectorSize
		end := off + chunkBytes
		if end > uint64(len(mem)) {
			end = uint64(len(mem))
		}
		req := NewRequest(Extent{Block: extent.Block + sector, LengthByte: chunkBytes}, mem[off:end], read)
		p.Device.Request(req)
		for !req.Complete.Load() {
			p.Device.OnPoll()
			Yield()
		}
		p.Log.Debug("block chunk complete",
			zap.Uint64("block", req.Extent.Block),
			zap.Uint64("bytes", req.Extent.LengthByte),
			zap.Bool("read", read))

		// Advance by the chunk actually issued, not by a hardcoded
		// constant — the source reads 65536-sector chunks but increments
		// "sector += 65535", so each chunk overlaps the previous one by a
		// sector. Advancing by the real chunk size avoids that overlap.
		sector += chunk
	}
	return nil
}
