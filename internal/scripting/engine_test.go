package scripting

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/event"
	"github.com/vibeforge/engine/internal/core/mutation"
	"github.com/vibeforge/engine/internal/scene"
)

type harness struct {
	world    *ecs.World
	buffer   *mutation.Buffer
	commands *mutation.Commands
	bus      *event.Bus
	compiler *Compiler
	manager  *Manager
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	w, err := ecs.NewWorld(ecs.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, component.RegisterBuiltins(w.Registry()))
	h := &harness{
		world:    w,
		buffer:   mutation.NewBuffer(),
		commands: mutation.NewCommands(),
		bus:      event.NewBus(),
		compiler: NewCompiler(nil),
	}
	h.manager = NewManager(h.compiler, w, h.buffer, h.commands, h.bus, opts, nil)
	t.Cleanup(h.manager.ClearAll)
	return h
}

func (h *harness) entity(t *testing.T, name string) ecs.EntityID {
	t.Helper()
	e, err := h.world.Entities().Create(name, 0, "")
	require.NoError(t, err)
	require.True(t, h.world.Registry().AddComponent(e.ID, component.TransformType, nil))
	return e.ID
}

func (h *harness) compile(t *testing.T, id, src string) {
	t.Helper()
	res := h.compiler.Compile(src, id)
	require.True(t, res.Success, "%v", res.Err)
}

func (h *harness) run(id string, e ecs.EntityID, lc Lifecycle) ExecResult {
	return h.manager.ExecuteScript(id, ExecOptions{EntityID: e, Time: TimeInfo{DeltaTime: 0.016}}, lc)
}

func (h *harness) pending(t *testing.T, e ecs.EntityID, field string) any {
	t.Helper()
	v, ok := h.buffer.Peek(e, component.TransformType, field)
	require.True(t, ok, "no pending %s for entity %d", field, e)
	return v
}

func TestExecuteScript_SetPositionIsBuffered(t *testing.T) {
	h := newHarness(t, Options{})
	cube := h.entity(t, "Cube")
	h.compile(t, "mover", `function onStart() entity.transform.setPosition(1, 2, 3) end`)

	res := h.run("mover", cube, OnStart)
	require.True(t, res.Success)
	require.NoError(t, res.Err)
	require.Equal(t, []float64{1, 2, 3}, h.pending(t, cube, "position"))

	tr, _ := ecs.Get[component.Transform](h.world.Registry(), cube, component.TransformType)
	require.Zero(t, tr.Position.Len(), "registry is untouched until write-back")
}

func TestExecuteScript_NotCompiled(t *testing.T) {
	h := newHarness(t, Options{})
	res := h.run("nope", h.entity(t, "e"), OnStart)
	require.False(t, res.Success)
	require.True(t, errors.Is(res.Err, ErrNotCompiled))
	require.False(t, h.manager.Has(1))
}

func TestExecuteScript_FailureIsContained(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.entity(t, "a")
	b := h.entity(t, "b")
	h.compile(t, "bad", "function onUpdate(dt)\n  error(\"boom\")\nend")
	h.compile(t, "good", "function onUpdate(dt) entity.transform.translate(dt, 0, 0) end")

	res := h.run("bad", a, OnUpdate)
	require.False(t, res.Success)
	require.True(t, errors.Is(res.Err, ErrRuntime))
	var se *ScriptError
	require.True(t, errors.As(res.Err, &se))
	require.Contains(t, se.Message, "boom")
	require.Contains(t, se.Message, ":2:")
	require.Equal(t, a, se.Entity)

	require.True(t, h.run("good", b, OnUpdate).Success)
	require.False(t, h.run("bad", a, OnUpdate).Success)
	require.True(t, h.run("good", b, OnUpdate).Success)
	require.InDeltaSlice(t, []float64{0.032, 0, 0}, h.pending(t, b, "position"), 1e-9)
}

func TestExecuteScript_GoPanicIsRecovered(t *testing.T) {
	h := newHarness(t, Options{Spatial: panicSpatial{}})
	e := h.entity(t, "e")
	h.compile(t, "ray", `function onStart() query.raycastFirst({0,0,0}, {0,0,1}) end`)
	res := h.run("ray", e, OnStart)
	require.False(t, res.Success)
	require.True(t, errors.Is(res.Err, ErrRuntime))
	require.True(t, h.run("ray", e, OnDestroy).Success, "context still usable")
}

type panicSpatial struct{}

func (panicSpatial) RaycastFirst(Ray) (Hit, bool) { panic("spatial index corrupted") }

func TestExecuteScript_MissingHandlerIsNoop(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "only-start", `function onStart() end`)
	res := h.run("only-start", e, OnDisable)
	require.True(t, res.Success)
	require.True(t, h.manager.HasHandler(e, "only-start", OnStart))
	require.False(t, h.manager.HasHandler(e, "only-start", OnDisable))
}

func TestExecuteScript_ModuleTableStyle(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "mod", `
local M = {}
function M.onUpdate(dt)
  entity.transform.setScale(2, 2, 2)
end
return M
`)
	require.True(t, h.run("mod", e, OnUpdate).Success)
	require.Equal(t, []float64{2, 2, 2}, h.pending(t, e, "scale"))
}

func TestExecuteScript_Isolation(t *testing.T) {
	h := newHarness(t, Options{})
	a := h.entity(t, "a")
	b := h.entity(t, "b")
	h.compile(t, "sandbox", `
function onStart()
  assert(os == nil and io == nil and require == nil and dofile == nil)
  assert(loadstring == nil and load == nil and getfenv == nil and debug == nil)
  string.upper = nil
  local mt = getmetatable("")
  assert(mt == false)
  if type(mt) == "table" then mt.__index.lower = nil end
end`)
	h.compile(t, "counter", `
count = 0
function onUpdate(dt)
  count = count + 1
  entity.transform.setPosition(count, 0, 0)
end`)
	h.compile(t, "peek", `
function onStart()
  assert(count == nil)
  assert(string.upper ~= nil)
  assert(("x"):upper() == "X" and ("Y"):lower() == "y")
end`)

	require.True(t, h.run("sandbox", a, OnStart).Success)
	require.True(t, h.run("counter", a, OnUpdate).Success)
	require.True(t, h.run("counter", a, OnUpdate).Success)
	require.True(t, h.run("counter", b, OnUpdate).Success)
	require.True(t, h.run("peek", a, OnStart).Success)
	require.Equal(t, []float64{2, 0, 0}, h.pending(t, a, "position"))
	require.Equal(t, []float64{1, 0, 0}, h.pending(t, b, "position"))
}

func TestExecuteScript_UnknownEntity(t *testing.T) {
	h := newHarness(t, Options{})
	h.compile(t, "s", `function onStart() entity.transform.setPosition(1, 0, 0) end`)

	ghost := ecs.NewEntityID(4242, 0)
	res := h.run("s", ghost, OnStart)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, ecs.ErrEntityNotFound)
	require.False(t, h.manager.Has(ghost))
	require.Zero(t, h.manager.Len())
	require.False(t, h.buffer.HasPending())

	reserved := h.world.Entities().Reserve()
	require.False(t, h.run("s", reserved, OnStart).Success, "reserved ids get no context before creation")
	require.Zero(t, h.manager.Len())
}

func TestExecuteScript_RecompileRematerializes(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "s", `function onUpdate(dt) entity.transform.setPosition(1, 0, 0) end`)
	require.True(t, h.run("s", e, OnUpdate).Success)
	require.Equal(t, []float64{1, 0, 0}, h.pending(t, e, "position"))

	h.compile(t, "s", `function onUpdate(dt) entity.transform.setPosition(2, 0, 0) end`)
	require.True(t, h.run("s", e, OnUpdate).Success)
	require.Equal(t, []float64{2, 0, 0}, h.pending(t, e, "position"))
}

func TestExecuteScript_RefreshesTransientState(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "p", `
function onUpdate(dt)
  local x = 0
  if input.isKeyDown("Space") then x = 1 end
  entity.transform.setPosition(params.speed, time.frameCount, x)
end`)
	opts := ExecOptions{EntityID: e, Parameters: map[string]any{"speed": 1}, Time: TimeInfo{FrameCount: 1}}
	require.True(t, h.manager.ExecuteScript("p", opts, OnUpdate).Success)
	require.Equal(t, []float64{1, 1, 0}, h.pending(t, e, "position"))

	opts.Parameters = map[string]any{"speed": 3.5}
	opts.Time.FrameCount = 2
	opts.Input.Keys = map[string]bool{"Space": true}
	require.True(t, h.manager.ExecuteScript("p", opts, OnUpdate).Success)
	require.Equal(t, []float64{3.5, 2, 1}, h.pending(t, e, "position"))
}

func TestExecuteScript_BudgetIsAdvisory(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "slow", `function onUpdate(dt) local n = 0; for i = 1, 200000 do n = n + i end end`)
	res := h.manager.ExecuteScript("slow", ExecOptions{EntityID: e, Budget: time.Nanosecond}, OnUpdate)
	require.True(t, res.Success)
	require.True(t, res.OverBudget)
	require.Positive(t, res.Duration)
}

func TestEntityAPI(t *testing.T) {
	h := newHarness(t, Options{})
	store := h.world.Entities()
	parent := h.entity(t, "Parent")
	child, err := store.Create("Arm", parent, "")
	require.NoError(t, err)
	_, err = store.Create("Hand", child.ID, "")
	require.NoError(t, err)
	require.True(t, h.world.Registry().UpdateComponent(parent, component.TransformType, ecs.Fields{
		"position": []float64{1, 1, 1},
		"rotation": []float64{0, 90, 0},
	}))

	h.compile(t, "api", `
function onStart()
  local x, y, z = entity.transform.position()
  assert(x == 1 and y == 1 and z == 1)
  local _, ry, _ = entity.transform:rotation()
  assert(math.abs(ry - math.pi / 2) < 1e-9)
  entity.transform:translate(1, 0, 0)
  entity.transform.translate({x = 0, y = 2, z = 0})
  entity.transform.rotate(0, math.pi / 2, 0)

  local kids = entity:getChildren()
  assert(#kids == 1 and kids[1].name == "Arm")
  assert(kids[1]:getParent().id == entity.id)
  assert(entity.findChild("Hand") ~= nil)
  assert(entity.findChild("Foot") == nil)
  assert(entity.hasComponent("Transform"))
  assert(entity.getComponent("Camera") == nil)
  local tr = entity.getComponent("Transform")
  assert(tr.position[1] == 1)

  entity.setComponent("Transform", {scale = {3, 3, 3}})
  entity.addComponent("Camera", {fov = 70})
  entity.removeComponent("Sound")
  entity:setActive(false)
end`)
	require.True(t, h.run("api", parent, OnStart).Success)
	require.Equal(t, []float64{2, 3, 1}, h.pending(t, parent, "position"))
	require.InDeltaSlice(t, []float64{0, 180, 0}, h.pending(t, parent, "rotation"), 1e-9)
	require.Equal(t, []any{3.0, 3.0, 3.0}, h.pending(t, parent, "scale"))

	cmds := h.commands.Drain()
	require.Len(t, cmds, 3)
	require.Equal(t, mutation.KindAttach, cmds[0].Kind)
	require.Equal(t, ecs.Fields{"fov": 70.0}, cmds[0].Components[component.CameraType])
	require.Equal(t, mutation.KindRemoveComponent, cmds[1].Kind)
	require.Equal(t, component.SoundType, cmds[1].Component)
	require.Equal(t, mutation.KindSetActive, cmds[2].Kind)
	require.False(t, cmds[2].Active)
	require.Equal(t, parent, cmds[2].Issuer)
}

func TestEntityAPI_GettersSeeBufferedWrites(t *testing.T) {
	h := newHarness(t, Options{})
	mover := h.entity(t, "Mover")
	watcher := h.entity(t, "Watcher")

	h.compile(t, "move", `
function onUpdate(dt)
  entity.transform.setPosition(1, 2, 3)
  local x, y, z = entity.transform.position()
  assert(x == 1 and y == 2 and z == 3)
  entity.transform.translate(1, 0, 0)
  assert(entity.transform.getPosition().x == 2)
  entity.transform.setRotation(0, math.pi, 0)
  local _, ry, _ = entity.transform.rotation()
  assert(math.abs(ry - math.pi) < 1e-9)
end`)
	h.compile(t, "watch", `
function onUpdate(dt)
  local x = query.getEntity(query.findByName("Mover")[1]).transform.position()
  assert(x == 2)
end`)
	require.True(t, h.run("move", mover, OnUpdate).Success)
	require.True(t, h.run("watch", watcher, OnUpdate).Success)
	require.Equal(t, []float64{2, 2, 3}, h.pending(t, mover, "position"))
}

func TestGameObjectAPI(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "Spawner")
	h.compile(t, "spawn", `
function onStart()
  local cube = GameObject.createPrimitive("cube", { name = "Box", position = {1, 2, 3}, color = "#ff0000" })
  cube.transform.setScale(2, 2, 2)
  local copy = GameObject.clone(entity, { name = "Spawner2" })
  GameObject.setParent(cube, entity)
  GameObject.attachComponents(cube, { RigidBody = { mass = 5 } })
  GameObject.destroy(entity)
  local ok = pcall(GameObject.createPrimitive, "teapot")
  assert(not ok)
end`)
	require.True(t, h.run("spawn", e, OnStart).Success)

	cmds := h.commands.Drain()
	require.Len(t, cmds, 5)
	create := cmds[0]
	require.Equal(t, mutation.KindCreate, create.Kind)
	require.Equal(t, "Box", create.Name)
	require.Equal(t, ecs.Fields{"meshId": "cube", "color": "#ff0000"}, create.Components[component.MeshRendererType])
	require.Equal(t, []any{1.0, 2.0, 3.0}, create.Components[component.TransformType]["position"])
	require.False(t, h.world.Entities().Exists(create.Entity), "created at write-back")
	require.Equal(t, []float64{2, 2, 2}, h.pending(t, create.Entity, "scale"))

	require.Equal(t, mutation.KindClone, cmds[1].Kind)
	require.Equal(t, e, cmds[1].Source)
	require.Equal(t, mutation.KindSetParent, cmds[2].Kind)
	require.Equal(t, e, cmds[2].Parent)
	require.Equal(t, mutation.KindAttach, cmds[3].Kind)
	require.Equal(t, mutation.KindDestroy, cmds[4].Kind)
	require.Equal(t, e, cmds[4].Entity)
}

func TestQueryAPI(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "Seeker")
	target, err := h.world.Entities().Create("Target", 0, "target-1")
	require.NoError(t, err)
	h.manager.opts.Spatial = fixedSpatial{hit: target.ID}
	require.True(t, h.world.Registry().AddComponent(target.ID, component.CameraType, nil))

	h.compile(t, "q", `
function onStart()
  local ids = query.findByName("Target")
  assert(#ids == 1)
  local id = query.findByPersistentId("target-1")
  assert(id == ids[1])
  assert(#query.withComponent("Camera") == 1)
  local t = query.getEntity(id)
  assert(t.name == "Target")
  assert(query.getEntity(999999) == nil)
  local hit = query.raycastFirst({0, 0, 0}, {0, 0, 5})
  assert(hit.entity == id and hit.distance == 4)
end`)
	res := h.run("q", e, OnStart)
	require.True(t, res.Success, "%v", res.Err)
}

type fixedSpatial struct{ hit ecs.EntityID }

func (s fixedSpatial) RaycastFirst(r Ray) (Hit, bool) {
	return Hit{Entity: s.hit, Point: r.Origin.Add(r.Direction.Mul(4)), Distance: 4}, true
}

func TestTimers(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "timers", `
function onStart()
  timer.setTimeout(function() entity.transform.setPosition(9, 9, 9) end, 100)
  local n = 0
  timer.setInterval(function() n = n + 1; entity.transform.setScale(n, n, n) end, 50)
  local cancelled = timer.setTimeout(function() error("should not fire") end, 10)
  timer.clearTimeout(cancelled)
end`)
	require.True(t, h.run("timers", e, OnStart).Success)

	require.Equal(t, 1, h.manager.AdvanceTimers(e, 50*time.Millisecond))
	require.Equal(t, []float64{1, 1, 1}, h.pending(t, e, "scale"))
	require.Equal(t, 2, h.manager.AdvanceTimers(e, 50*time.Millisecond))
	require.Equal(t, []float64{9, 9, 9}, h.pending(t, e, "position"))
	require.Equal(t, []float64{2, 2, 2}, h.pending(t, e, "scale"))
	require.Equal(t, 1, h.manager.AdvanceTimers(e, 50*time.Millisecond), "timeout fired once")
	require.Zero(t, h.manager.AdvanceTimers(999, time.Second))
}

func TestEvents(t *testing.T) {
	h := newHarness(t, Options{})
	recv := h.entity(t, "receiver")
	send := h.entity(t, "sender")
	h.compile(t, "recv", `
function onStart()
  events.on("ping", function(payload, source)
    entity.transform.setPosition(payload.x, source, 0)
  end)
end`)
	h.compile(t, "send", `function onStart() events.emit("ping", { x = 5 }) end`)

	require.True(t, h.run("recv", recv, OnStart).Success)
	require.True(t, h.run("send", send, OnStart).Success)
	require.Zero(t, h.bus.DispatchAll(), "delivered next frame")

	h.bus.SwapBuffers()
	require.Equal(t, 1, h.bus.DispatchAll())
	require.Equal(t, []float64{5, float64(send), 0}, h.pending(t, recv, "position"))

	require.True(t, h.manager.RemoveScriptContext(recv))
	require.False(t, h.manager.RemoveScriptContext(recv))
	require.True(t, h.run("send", send, OnStart).Success)
	h.bus.SwapBuffers()
	require.Zero(t, h.bus.DispatchAll())
}

type recordingAudio struct {
	NopAudio
	stopped []AudioHandle
}

func (a *recordingAudio) Stop(h AudioHandle) { a.stopped = append(a.stopped, h) }

func TestRemoveScriptContext_ReleasesResources(t *testing.T) {
	audio := &recordingAudio{}
	h := newHarness(t, Options{Audio: audio})
	e := h.entity(t, "e")
	require.True(t, h.world.Registry().AddComponent(e, component.SoundType, ecs.Fields{"url": "sfx/loop.ogg"}))
	h.compile(t, "noisy", `
function onStart()
  local a = audio.play()
  local b = audio.play("sfx/other.ogg", { volume = 0.5 })
  assert(a ~= nil and b ~= nil and a ~= b)
  timer.setInterval(function() end, 10)
end`)
	require.True(t, h.run("noisy", e, OnStart).Success)
	require.True(t, h.manager.Has(e))
	require.Equal(t, 1, h.manager.Len())

	require.True(t, h.manager.RemoveScriptContext(e))
	require.Len(t, audio.stopped, 2)
	require.Zero(t, h.manager.AdvanceTimers(e, time.Second))
	require.False(t, h.manager.Has(e))

	// a fresh context is created on the next call
	require.True(t, h.run("noisy", e, OnStart).Success)
	require.True(t, h.manager.Has(e))
}

func TestClearAll(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "s", `function onStart() end`)
	require.True(t, h.run("s", e, OnStart).Success)
	h.manager.ClearAll()
	require.Zero(t, h.manager.Len())
	require.Zero(t, h.compiler.Len())
	require.True(t, errors.Is(h.run("s", e, OnStart).Err, ErrNotCompiled))
}

func TestMathAPI(t *testing.T) {
	h := newHarness(t, Options{})
	e := h.entity(t, "e")
	h.compile(t, "m", `
function onStart()
  assert(math.clamp(5, 0, 3) == 3)
  assert(math.lerp(0, 10, 0.25) == 2.5)
  assert(math.abs(math.radToDeg(math.pi) - 180) < 1e-9)
  assert(math.abs(math.degToRad(180) - math.pi) < 1e-9)
  assert(math.distance(0, 0, 0, 3, 4, 0) == 5)
  assert(math.distance({0, 0, 0}, {x = 0, y = 3, z = 4}) == 5)
  assert(math.round(2.5) == 3)
  local v = math.vec3.cross({1, 0, 0}, {0, 1, 0})
  assert(v.z == 1)
  assert(math.vec3.length(math.vec3.normalize({0, 0, 4})) == 1)
  assert(math.floor(1.5) == 1)
end`)
	res := h.run("m", e, OnStart)
	require.True(t, res.Success, "%v", res.Err)
}

type memorySave struct {
	data    map[string]any
	flushes int
}

func (s *memorySave) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *memorySave) Set(key string, value any) error {
	s.data[key] = value
	return nil
}

func (s *memorySave) Delete(key string) error {
	delete(s.data, key)
	return nil
}

func (s *memorySave) Clear() error {
	clear(s.data)
	return nil
}

func (s *memorySave) Flush() error {
	s.flushes++
	return nil
}

func (s *memorySave) Reload() error { return errors.New("no backing file") }

func TestSaveAPI(t *testing.T) {
	store := &memorySave{data: map[string]any{"legacy": 2.5}}
	h := newHarness(t, Options{Save: store})
	e := h.entity(t, "e")
	h.compile(t, "save", `
function onStart()
  save.setInt("level", 10.7)
  save.setFloat("health", 85.5)
  save.setString("name", "Hero")
  save.setObject("inventory", {gold = 100, items = {"sword", "shield"}})

  assert(save.getInt("level", 1) == 10)
  assert(save.getInt("health", 1) == 1, "fractional values are not ints")
  assert(save.getFloat("health") == 85.5)
  assert(save.getFloat("legacy") == 2.5)
  assert(save.getString("name", "Player") == "Hero")
  assert(save.getString("level", "none") == "none")
  assert(save.getInt("missing") == nil)
  local inv = save.getObject("inventory")
  assert(inv.gold == 100 and inv.items[2] == "shield")
  assert(save.getObject("missing") == nil)

  assert(save.hasKey("name"))
  save.deleteKey("name")
  assert(not save.hasKey("name"))
  assert(save.save() == true)
  assert(save.load() == false)
end`)
	require.True(t, h.run("save", e, OnStart).Success)
	require.Equal(t, int64(10), store.data["level"])
	require.Equal(t, map[string]any{"gold": 100.0, "items": []any{"sword", "shield"}}, store.data["inventory"])
	require.Equal(t, 1, store.flushes)

	t.Run("without a store", func(t *testing.T) {
		h := newHarness(t, Options{})
		e := h.entity(t, "e")
		h.compile(t, "stub", `
function onStart()
  save.setInt("level", 3)
  assert(save.getInt("level", 1) == 1)
  assert(not save.hasKey("level"))
  assert(save.save() == false and save.load() == false)
end`)
		require.True(t, h.run("stub", e, OnStart).Success)
	})
}

type staticPrefabs map[string]*scene.Document

func (p staticPrefabs) Load(path string) (*scene.Document, error) {
	if doc, ok := p[path]; ok {
		return doc, nil
	}
	return nil, errors.New("no such prefab")
}

func TestPrefabAPI(t *testing.T) {
	h := newHarness(t, Options{Prefabs: staticPrefabs{
		"fx/spark.yaml": {Entities: []scene.Node{{Name: "Spark"}}},
	}})
	e := h.entity(t, "e")
	h.compile(t, "spawn", `
function onStart()
  local s = prefab.instantiate("fx/spark.yaml", {1, 2, 3}, entity)
  assert(s ~= nil and s.id ~= nil)
  assert(prefab.instantiate("fx/none.yaml") == nil)
  assert(#prefab.getInstances("fx/spark.yaml") == 0, "instances appear after write-back")
end`)
	require.True(t, h.run("spawn", e, OnStart).Success)

	cmds := h.commands.Drain()
	require.Len(t, cmds, 1)
	cmd := cmds[0]
	require.Equal(t, mutation.KindInstantiate, cmd.Kind)
	require.Equal(t, "spark", cmd.Name)
	require.Equal(t, e, cmd.Parent)
	require.Equal(t, "fx/spark.yaml", cmd.Prefab)
	require.Equal(t, []float64{1, 2, 3}, cmd.Components[component.TransformType]["position"])
	require.Equal(t, "fx/spark.yaml", cmd.Components[component.PrefabInstanceType]["path"])
}
