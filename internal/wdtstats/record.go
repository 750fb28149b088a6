// Package wdtstats implements the persisted per-program statistics
// record: lifetime counts, heartbeat timing, and resource usage for
// one supervised program. Rather than dumping a raw in-memory struct,
// which ties the on-disk layout to one compiler's padding rules, each
// field is serialized explicitly with encoding/binary in a documented,
// little-endian, fixed-width layout. A magic sentinel is the sole
// format-versioning mechanism: a mismatch means start over.
package wdtstats

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic identifies an initialized record. A mismatch (including an
// all-zero buffer from a never-written file) means "reset me".
const Magic uint32 = 0xA50FAA55

// cpuEMAAlpha is the smoothing factor for the CPU moving average.
// Memory uses a true arithmetic mean instead: CPU% is noisier sample
// to sample and benefits from smoothing.
const cpuEMAAlpha = 0.1

// Record is one program's persisted statistics.
type Record struct {
	StartedAt         int64
	CrashedAt         int64
	HeartbeatResetAt  int64
	AvgFirstHeartbeat int64
	MaxFirstHeartbeat int64
	MinFirstHeartbeat int64
	AvgHeartbeat      int64
	MaxHeartbeat      int64
	MinHeartbeat      int64

	StartCount           uint64
	CrashCount           uint64
	HeartbeatResetCount  uint64
	HeartbeatCount       uint64
	HeartbeatCountOld    uint64
	AvgHeartbeatCountOld uint64

	CPUCurrent float64
	CPUMax     float64
	CPUMin     float64
	CPUAvg     float64

	MemCurrentKB float64
	MemMaxKB     float64
	MemMinKB     float64
	MemAvgKB     float64

	ResourceSampleCount uint64

	Magic uint32
}

// New returns a freshly initialized record.
func New() Record {
	return Record{Magic: Magic}
}

// StartedAtEvent records a successful spawn.
func (r *Record) StartedAtEvent(wallNow int64) {
	r.StartedAt = wallNow
	r.StartCount++
	r.rollHeartbeatCount()
}

// CrashedAtEvent records a detected crash.
func (r *Record) CrashedAtEvent(wallNow int64) {
	r.CrashedAt = wallNow
	r.CrashCount++
	r.rollHeartbeatCount()
	r.updateAvgHeartbeatCountOld(r.CrashCount + r.HeartbeatResetCount)
}

// HeartbeatResetAtEvent records a restart triggered by a missed heartbeat.
func (r *Record) HeartbeatResetAtEvent(wallNow int64) {
	r.HeartbeatResetAt = wallNow
	r.HeartbeatResetCount++
	r.rollHeartbeatCount()
	r.updateAvgHeartbeatCountOld(r.CrashCount + r.HeartbeatResetCount)
}

func (r *Record) rollHeartbeatCount() {
	r.HeartbeatCountOld = r.HeartbeatCount
	r.HeartbeatCount = 0
}

func (r *Record) updateAvgHeartbeatCountOld(n uint64) {
	if n == 0 {
		return
	}
	r.AvgHeartbeatCountOld = ((r.AvgHeartbeatCountOld * (n - 1)) + r.HeartbeatCountOld) / n
}

// UpdateHeartbeatTime records the gap (seconds) since the previous
// heartbeat, once the program's current instance has already seen its
// first heartbeat.
func (r *Record) UpdateHeartbeatTime(seconds int64) {
	r.HeartbeatCount++
	n := int64(r.HeartbeatCount)
	r.AvgHeartbeat = ((r.AvgHeartbeat * (n - 1)) + seconds) / n

	if seconds > r.MaxHeartbeat {
		r.MaxHeartbeat = seconds
	}
	if seconds < r.MinHeartbeat || r.HeartbeatCount == 1 {
		r.MinHeartbeat = seconds
	}
}

// UpdateFirstHeartbeatTime records the warm-up latency (seconds) of the
// first heartbeat received after a (re)spawn.
func (r *Record) UpdateFirstHeartbeatTime(seconds int64) {
	n := int64(r.StartCount + r.CrashCount + r.HeartbeatResetCount)
	if n <= 0 {
		n = 1
	}
	r.AvgFirstHeartbeat = ((r.AvgFirstHeartbeat * (n - 1)) + seconds) / n

	if seconds > r.MaxFirstHeartbeat {
		r.MaxFirstHeartbeat = seconds
	}
	// The min-init guard checks start_count rather than n: the minimum
	// is initialized only on the very first start; every later start,
	// including a restart after a crash, keeps the smaller of the
	// existing minimum and the new sample.
	if seconds < r.MinFirstHeartbeat || r.StartCount == 1 {
		r.MinFirstHeartbeat = seconds
	}
}

// UpdateResourceUsage folds in one /proc sample. Memory uses a true
// arithmetic mean; CPU uses an EMA (noisier signal, smoothed).
func (r *Record) UpdateResourceUsage(cpuPercent, memKB float64) {
	r.ResourceSampleCount++

	r.CPUCurrent = cpuPercent
	if r.ResourceSampleCount == 1 {
		r.CPUAvg = cpuPercent
		r.CPUMin = cpuPercent
	} else {
		r.CPUAvg = cpuEMAAlpha*cpuPercent + (1-cpuEMAAlpha)*r.CPUAvg
		if cpuPercent < r.CPUMin {
			r.CPUMin = cpuPercent
		}
	}
	if cpuPercent > r.CPUMax {
		r.CPUMax = cpuPercent
	}

	r.MemCurrentKB = memKB
	n := float64(r.ResourceSampleCount)
	r.MemAvgKB = ((r.MemAvgKB * (n - 1)) + memKB) / n
	if memKB > r.MemMaxKB {
		r.MemMaxKB = memKB
	}
	if memKB < r.MemMinKB || r.ResourceSampleCount == 1 {
		r.MemMinKB = memKB
	}
}

// fields lists the fixed encode/decode order. Keeping it as a
// single ordered list (rather than relying on struct field order plus
// binary.Write(&r)) means the wire layout survives a field reordering
// in the Go struct, and there is never any implicit padding to reason
// about.
func (r *Record) fields() []any {
	return []any{
		&r.StartedAt, &r.CrashedAt, &r.HeartbeatResetAt,
		&r.AvgFirstHeartbeat, &r.MaxFirstHeartbeat, &r.MinFirstHeartbeat,
		&r.AvgHeartbeat, &r.MaxHeartbeat, &r.MinHeartbeat,
		&r.StartCount, &r.CrashCount, &r.HeartbeatResetCount,
		&r.HeartbeatCount, &r.HeartbeatCountOld, &r.AvgHeartbeatCountOld,
		&r.CPUCurrent, &r.CPUMax, &r.CPUMin, &r.CPUAvg,
		&r.MemCurrentKB, &r.MemMaxKB, &r.MemMinKB, &r.MemAvgKB,
		&r.ResourceSampleCount, &r.Magic,
	}
}

// Encode serializes r into its fixed little-endian layout.
func (r *Record) Encode() []byte {
	var buf bytes.Buffer
	for _, f := range r.fields() {
		// binary.Write never fails against a bytes.Buffer and a set of
		// fixed-size numeric fields.
		_ = binary.Write(&buf, binary.LittleEndian, derefForWrite(f))
	}
	return buf.Bytes()
}

// derefForWrite turns the pointer-to-field used for decoding into the
// value binary.Write expects when encoding.
func derefForWrite(p any) any {
	switch v := p.(type) {
	case *int64:
		return *v
	case *uint64:
		return *v
	case *float64:
		return *v
	case *uint32:
		return *v
	default:
		panic(fmt.Sprintf("wdtstats: unsupported field type %T", p))
	}
}

// Decode builds a Record from a buffer previously produced by Encode. A
// short buffer is reported as an error here; a full-length buffer with
// corrupt contents decodes without error and is caught by the caller's
// subsequent magic check.
func Decode(data []byte) (Record, error) {
	r := Record{}
	buf := bytes.NewReader(data)
	for _, f := range r.fields() {
		if err := binary.Read(buf, binary.LittleEndian, f); err != nil {
			return Record{}, fmt.Errorf("decode stats record: %w", err)
		}
	}
	return r, nil
}

// LoadOrReset decodes data into a Record and, if the magic sentinel
// doesn't match (including the all-zero case of a never-written
// buffer), returns a freshly zeroed record instead of a corrupt one.
func LoadOrReset(data []byte) Record {
	r, err := Decode(data)
	if err != nil || r.Magic != Magic {
		return New()
	}
	return r
}
