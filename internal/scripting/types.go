package scripting

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/scene"
)

// Lifecycle names a script hook.
type Lifecycle string

const (
	OnStart   Lifecycle = "onStart"
	OnUpdate  Lifecycle = "onUpdate"
	OnDestroy Lifecycle = "onDestroy"
	OnEnable  Lifecycle = "onEnable"
	OnDisable Lifecycle = "onDisable"
)

var lifecycles = []Lifecycle{OnStart, OnUpdate, OnDestroy, OnEnable, OnDisable}

// TimeInfo is the time snapshot scripts see. Times are in seconds.
type TimeInfo struct {
	Time       float64
	DeltaTime  float64
	FrameCount uint64
}

// Input is the input snapshot scripts see for one frame.
type Input struct {
	Keys         map[string]bool
	MouseButtons map[int]bool
	MouseX       float64
	MouseY       float64
}

// ExecOptions carries the transient state refreshed on every call.
type ExecOptions struct {
	EntityID   ecs.EntityID
	Time       TimeInfo
	Input      Input
	Parameters map[string]any
	// Budget overrides the manager's default soft time budget.
	Budget time.Duration
}

// ExecResult reports one ExecuteScript call. Err is nil on success.
type ExecResult struct {
	Success    bool
	Err        error
	Duration   time.Duration
	OverBudget bool
}

// AudioHandle identifies one playing sound.
type AudioHandle uint64

type PlayOptions struct {
	Volume float64
	Loop   bool
}

// Audio plays sounds on behalf of scripts.
type Audio interface {
	Play(entity ecs.EntityID, url string, opts PlayOptions) (AudioHandle, error)
	Stop(h AudioHandle)
	SetVolume(h AudioHandle, volume float64)
	IsPlaying(h AudioHandle) bool
}

// NopAudio hands out handles and plays nothing.
type NopAudio struct {
	next atomic.Uint64
}

func (a *NopAudio) Play(ecs.EntityID, string, PlayOptions) (AudioHandle, error) {
	return AudioHandle(a.next.Add(1)), nil
}

func (a *NopAudio) Stop(AudioHandle)               {}
func (a *NopAudio) SetVolume(AudioHandle, float64) {}
func (a *NopAudio) IsPlaying(AudioHandle) bool     { return false }

type Ray struct {
	Origin      mgl64.Vec3
	Direction   mgl64.Vec3
	MaxDistance float64
}

type Hit struct {
	Entity   ecs.EntityID
	Point    mgl64.Vec3
	Distance float64
}

// Spatial answers ray queries against committed scene state.
type Spatial interface {
	RaycastFirst(r Ray) (Hit, bool)
}

// PrefabSource resolves the prefab paths passed to prefab.instantiate.
// Implemented by scene.Library.
type PrefabSource interface {
	Load(path string) (*scene.Document, error)
}

// SaveStore is the key/value store behind the save capability. Values are
// plain data: numbers, strings, bools, []any and map[string]any.
type SaveStore interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) error
	Clear() error
	// Flush writes pending data to durable storage; Reload replaces the
	// in-memory data with the stored copy.
	Flush() error
	Reload() error
}
