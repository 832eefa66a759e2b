// GPU-accelerated broad-phase collision detection
package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// FlagSleeping marks a box as static or inactive. Two flagged boxes are never paired.
const FlagSleeping uint32 = 1

// Box is a bounding box laid out for the shader: vec3 min, u32 flags,
// vec3 max, u32 padding.
type Box struct {
	MinX, MinY, MinZ float32
	Flags            uint32
	MaxX, MaxY, MaxZ float32
	_                uint32
}

// Pair holds the indices of two overlapping boxes, A < B.
type Pair struct {
	A, B uint32
}

const broadPhaseShader = `
// Each thread tests one box against every box with a higher index,
// giving n*(n-1)/2 tests with no duplicates.

struct Box {
    min: vec3<f32>,
    flags: u32,
    max: vec3<f32>,
    pad: u32,
}

struct Pair {
    a: u32,
    b: u32,
}

@group(0) @binding(0) var<storage, read> boxes: array<Box>;
@group(0) @binding(1) var<storage, read_write> pairs: array<Pair>;
@group(0) @binding(2) var<storage, read_write> pairCount: atomic<u32>;
@group(0) @binding(3) var<uniform> boxCount: vec4<u32>;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    let count = boxCount.x;
    if (i >= count) {
        return;
    }

    let a = boxes[i];
    for (var j = i + 1u; j < count; j = j + 1u) {
        let b = boxes[j];

        if ((a.flags & b.flags & 1u) != 0u) {
            continue;
        }
        if (any(a.min > b.max) || any(b.min > a.max)) {
            continue;
        }

        let idx = atomicAdd(&pairCount, 1u);
        if (idx < arrayLength(&pairs)) {
            pairs[idx] = Pair(i, j);
        }
    }
}
`

// BroadPhase finds overlapping box pairs on the GPU. Buffers are sized once
// for maxObjects boxes and maxPairs results.
type BroadPhase struct {
	system   *System
	pipeline *Pipeline
	bind     *wgpu.BindGroup

	boxBuffer     *Buffer
	pairBuffer    *Buffer
	countBuffer   *Buffer
	uniformBuffer *Buffer

	maxObjects uint32
	maxPairs   uint32
}

// NewBroadPhase creates a GPU broad-phase. Initialize must have succeeded first.
func NewBroadPhase(maxObjects, maxPairs uint32) (*BroadPhase, error) {
	sys := Get()
	if sys == nil {
		return nil, ErrUnavailable
	}

	storage := func(binding uint32, t wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: t},
		}
	}
	pipeline, err := sys.CreatePipeline("broadphase_aabb", broadPhaseShader, "main", []wgpu.BindGroupLayoutEntry{
		storage(0, wgpu.BufferBindingTypeReadOnlyStorage),
		storage(1, wgpu.BufferBindingTypeStorage),
		storage(2, wgpu.BufferBindingTypeStorage),
		storage(3, wgpu.BufferBindingTypeUniform),
	})
	if err != nil {
		return nil, err
	}

	bp := &BroadPhase{system: sys, pipeline: pipeline, maxObjects: maxObjects, maxPairs: maxPairs}

	if bp.boxBuffer, err = sys.CreateBuffer("boxes", uint64(maxObjects)*32,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst); err != nil {
		bp.Release()
		return nil, err
	}
	if bp.pairBuffer, err = sys.CreateBuffer("pairs", uint64(maxPairs)*8,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc); err != nil {
		bp.Release()
		return nil, err
	}
	if bp.countBuffer, err = sys.CreateBuffer("pairCount", 4,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst); err != nil {
		bp.Release()
		return nil, err
	}
	if bp.uniformBuffer, err = sys.CreateBuffer("boxCount", 16,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst); err != nil {
		bp.Release()
		return nil, err
	}

	if bp.bind, err = sys.BindGroup(pipeline, bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer); err != nil {
		bp.Release()
		return nil, err
	}
	return bp, nil
}

// MaxObjects returns the box capacity.
func (bp *BroadPhase) MaxObjects() int {
	return int(bp.maxObjects)
}

// DetectPairs returns every overlapping pair of boxes, in no particular order.
// Indices refer to positions in boxes.
func (bp *BroadPhase) DetectPairs(boxes []Box) ([]Pair, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	if uint32(len(boxes)) > bp.maxObjects {
		return nil, fmt.Errorf("compute: %d boxes exceeds capacity %d", len(boxes), bp.maxObjects)
	}

	count := uint32(len(boxes))
	bp.system.WriteBuffer(bp.boxBuffer, 0, ToBytes(boxes))
	bp.system.WriteBuffer(bp.countBuffer, 0, ToBytes([]uint32{0}))
	bp.system.WriteBuffer(bp.uniformBuffer, 0, ToBytes([]uint32{count, 0, 0, 0}))

	if err := bp.system.Dispatch(bp.pipeline, bp.bind, (count+255)/256); err != nil {
		return nil, err
	}

	countData, err := bp.system.ReadBuffer(bp.countBuffer, 4)
	if err != nil {
		return nil, err
	}
	pairCount := fromBytes[uint32](countData)[0]
	if pairCount == 0 {
		return nil, nil
	}
	if pairCount > bp.maxPairs {
		return nil, fmt.Errorf("compute: %d pairs overflow buffer of %d", pairCount, bp.maxPairs)
	}

	pairData, err := bp.system.ReadBuffer(bp.pairBuffer, uint64(pairCount)*8)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair, pairCount)
	copy(pairs, fromBytes[Pair](pairData))
	return pairs, nil
}

// Release frees GPU resources.
func (bp *BroadPhase) Release() {
	if bp.bind != nil {
		bp.bind.Release()
		bp.bind = nil
	}
	for _, b := range []*Buffer{bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer} {
		if b != nil {
			b.Release()
		}
	}
	bp.boxBuffer, bp.pairBuffer, bp.countBuffer, bp.uniformBuffer = nil, nil, nil, nil
}
