// Package trace records the instructions a CPU executes.
package trace

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/arm7sim/emu"
)

// LogHook logs every executed instruction at V(2). Failed instructions are
// logged at V(0) through Error.
type LogHook struct {
	logger logr.Logger
}

// NewLogHook creates a hook that writes to logger.
func NewLogHook(logger logr.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func implements sim.Hook.
func (h *LogHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != emu.HookPosAfterExecute {
		return
	}

	event, ok := ctx.Item.(*emu.ExecuteEvent)
	if !ok {
		return
	}

	kv := []any{
		"addr", fmt.Sprintf("0x%08X", event.Addr),
		"raw", fmt.Sprintf("0x%08X", event.Inst.Raw),
		"op", event.Inst.Op.String(),
		"cond", event.Inst.Cond.String(),
		"executed", event.Executed,
	}

	if event.Err != nil {
		h.logger.Error(event.Err, "instruction failed", kv...)
		return
	}

	h.logger.V(2).Info("instruction", kv...)
}

// Record is one entry captured by a Recorder.
type Record struct {
	Addr     uint32
	Raw      uint32
	Op       string
	Executed bool
	Err      error
}

// Recorder keeps the most recent executed instructions in memory.
type Recorder struct {
	capacity int
	records  []Record
}

// NewRecorder creates a Recorder keeping at most capacity records. A
// capacity of 0 keeps everything.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{capacity: capacity}
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != emu.HookPosAfterExecute {
		return
	}

	event, ok := ctx.Item.(*emu.ExecuteEvent)
	if !ok {
		return
	}

	r.records = append(r.records, Record{
		Addr:     event.Addr,
		Raw:      event.Inst.Raw,
		Op:       event.Inst.Op.String(),
		Executed: event.Executed,
		Err:      event.Err,
	})

	if r.capacity > 0 && len(r.records) > r.capacity {
		r.records = r.records[len(r.records)-r.capacity:]
	}
}

// Records returns the captured records, oldest first.
func (r *Recorder) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Reset drops all records.
func (r *Recorder) Reset() {
	r.records = nil
}
