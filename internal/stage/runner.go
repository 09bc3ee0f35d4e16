package stage

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/animdirector/internal/bindstore"
	"github.com/Faultbox/animdirector/internal/director"
	"github.com/Faultbox/animdirector/internal/engine/picking"
	"github.com/Faultbox/animdirector/pkg/math"
)

// Result records the outcome of one executed command.
type Result struct {
	Frame  int
	Do     string
	OK     bool
	Detail string
}

func (r Result) String() string {
	s := fmt.Sprintf("%d %s ok=%t", r.Frame, r.Do, r.OK)
	if r.Detail != "" {
		s += " " + r.Detail
	}
	return s
}

// Runner executes a stage script against a World one frame at a time.
// Commands scheduled for a frame run before that frame's update.
type Runner struct {
	stage *Stage
	world *World
	store *bindstore.Store
	log   *zap.Logger

	frame   int
	next    int
	results []Result
	events  []director.Event
	unsub   func()
}

// NewRunner creates a runner. A nil store keeps bindings in memory; a nil
// logger discards output.
func NewRunner(st *Stage, w *World, store *bindstore.Store, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = bindstore.New(nil, log)
	}
	r := &Runner{stage: st, world: w, store: store, log: log}
	r.unsub = w.Director.Subscribe(func(ev director.Event) {
		r.events = append(r.events, ev)
		r.log.Debug("event",
			zap.Stringer("type", ev.Type),
			zap.String("model", ev.ModelID),
			zap.String("animation", ev.AnimationID),
			zap.String("mesh", ev.MeshID))
	})
	return r
}

// Frame returns the index of the next frame to run.
func (r *Runner) Frame() int { return r.frame }

// Done reports whether every scripted command has run.
func (r *Runner) Done() bool { return r.next >= len(r.stage.Script) }

// Results returns the outcomes so far, in execution order.
func (r *Runner) Results() []Result { return r.results }

// Events returns the director events seen so far.
func (r *Runner) Events() []director.Event { return r.events }

// Step runs the commands due this frame, then advances the director by dt.
func (r *Runner) Step(dt float64) {
	for r.next < len(r.stage.Script) && r.stage.Script[r.next].Frame <= r.frame {
		r.exec(r.stage.Script[r.next])
		r.next++
	}
	r.world.Director.Update(dt)
	r.frame++
}

// Run steps frames times at dt seconds per frame and returns the results.
func (r *Runner) Run(frames int, dt float64) []Result {
	for i := 0; i < frames; i++ {
		r.Step(dt)
	}
	return r.results
}

// Close detaches the runner from the director.
func (r *Runner) Close() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

func (r *Runner) exec(cmd Command) {
	ok, detail := handlers[cmd.Do](r, cmd)
	res := Result{Frame: r.frame, Do: cmd.Do, OK: ok, Detail: detail}
	r.results = append(r.results, res)
	if ok {
		r.log.Debug("command", zap.Int("frame", r.frame), zap.String("do", cmd.Do), zap.String("detail", detail))
	} else {
		r.log.Warn("command had no effect",
			zap.Int("frame", r.frame),
			zap.String("do", cmd.Do),
			zap.String("model", cmd.Model),
			zap.String("animation", cmd.Animation),
			zap.String("detail", detail))
	}
}

type handler func(r *Runner, cmd Command) (bool, string)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"play": func(r *Runner, c Command) (bool, string) {
			return r.world.Director.PlayAnimation(c.Model, c.Animation, c.Params), ""
		},
		"play_clip": func(r *Runner, c Command) (bool, string) {
			return r.world.Director.PlayClip(c.Model, c.Animation, c.Options.PlayOptions), ""
		},
		"stop": func(r *Runner, c Command) (bool, string) {
			if c.Animation == "" {
				n := r.world.Director.StopAll(c.Model)
				return n > 0, strconv.Itoa(n)
			}
			return r.withAnimation(c, r.world.Director.Stop)
		},
		"pause": func(r *Runner, c Command) (bool, string) {
			return r.withAnimation(c, r.world.Director.Pause)
		},
		"resume": func(r *Runner, c Command) (bool, string) {
			return r.withAnimation(c, r.world.Director.Resume)
		},
		"seek": func(r *Runner, c Command) (bool, string) {
			return r.withAnimation(c, func(id string) bool { return r.world.Director.Seek(id, c.Time) })
		},
		"configure": func(r *Runner, c Command) (bool, string) {
			return r.withAnimation(c, func(id string) bool { return r.world.Director.Configure(id, c.Params) })
		},
		"split": func(r *Runner, c Command) (bool, string) {
			ids := r.world.Director.SplitByTime(c.Model, c.Animation, c.Ranges, c.Names)
			return len(ids) > 0, strings.Join(ids, ",")
		},
		"remove_split": func(r *Runner, c Command) (bool, string) {
			return r.withAnimation(c, r.world.Director.RemoveSplit)
		},
		"bind": func(r *Runner, c Command) (bool, string) {
			return r.withMesh(c, func(mesh string) bool {
				return r.world.Director.Bind(c.Model, mesh, c.Animation, c.Options)
			})
		},
		"unbind": func(r *Runner, c Command) (bool, string) {
			return r.withMesh(c, func(mesh string) bool { return r.world.Director.Unbind(c.Model, mesh) })
		},
		"update_binding": func(r *Runner, c Command) (bool, string) {
			return r.withMesh(c, func(mesh string) bool {
				return r.world.Director.UpdateBinding(c.Model, mesh, c.Options)
			})
		},
		"start_binding": func(r *Runner, c Command) (bool, string) {
			ok := r.world.Director.StartBinding(c.Model, c.Animation, c.Options)
			if !ok {
				return false, ""
			}
			s, _ := r.world.Director.BindingSession()
			return true, strings.Join(s.Candidates, ",")
		},
		"cancel_binding": func(r *Runner, _ Command) (bool, string) {
			return r.world.Director.CancelBinding(), ""
		},
		"click": func(r *Runner, c Command) (bool, string) {
			mesh, ok := r.world.Mesh(c.Model, c.Mesh)
			if !ok {
				return false, "no mesh " + c.Mesh
			}
			res := r.world.Director.HandleClick(c.Model, mesh.ID())
			return res != director.ClickIgnored, res.String()
		},
		"click_ray": func(r *Runner, c Command) (bool, string) {
			if _, ok := r.world.Models[c.Model]; !ok || c.Ray == nil {
				return false, "no model or ray"
			}
			return r.pick(c.Model, picking.NewRay(math.Vec3FromSlice(c.Ray.Origin), math.Vec3FromSlice(c.Ray.Direction)))
		},
		"click_screen": func(r *Runner, c Command) (bool, string) {
			if _, ok := r.world.Models[c.Model]; !ok || len(c.Screen) < 2 || r.world.Camera == nil {
				return false, "no model or screen point"
			}
			origin, dir := r.world.Camera.ScreenRay(c.Screen[0], c.Screen[1])
			return r.pick(c.Model, picking.NewRay(origin, dir))
		},
		"hover": func(r *Runner, c Command) (bool, string) {
			return r.withMesh(c, func(mesh string) bool { return r.world.Director.Hover(c.Model, mesh) })
		},
		"save_bindings": func(r *Runner, c Command) (bool, string) {
			records := r.world.Director.ExportBindings()
			if err := r.store.Save(c.Profile, records); err != nil {
				return false, err.Error()
			}
			return true, strconv.Itoa(len(records))
		},
		"load_bindings": func(r *Runner, c Command) (bool, string) {
			records, err := r.store.Load(c.Profile)
			if err != nil {
				return false, err.Error()
			}
			n := r.world.Director.ImportBindings(records)
			return n > 0, strconv.Itoa(n)
		},
		"reload": func(r *Runner, c Command) (bool, string) {
			if err := r.world.Load(c.Model); err != nil {
				return false, err.Error()
			}
			return true, strconv.Itoa(len(r.world.Director.Bindings(c.Model)))
		},
	}
}

// pick clicks the nearest mesh of model hit by ray.
func (r *Runner) pick(modelID string, ray picking.Ray) (bool, string) {
	hit, ok := picking.PickMesh(r.world.Models[modelID], ray)
	if !ok {
		return false, "miss"
	}
	res := r.world.Director.HandleClick(modelID, hit.Node.ID())
	return res != director.ClickIgnored, hit.Node.Name() + " " + res.String()
}

func (r *Runner) withAnimation(c Command, fn func(id string) bool) (bool, string) {
	info, ok := r.world.Director.Find(c.Model, c.Animation)
	if !ok {
		return false, "no animation " + c.Animation
	}
	return fn(info.ID), info.ID
}

func (r *Runner) withMesh(c Command, fn func(mesh string) bool) (bool, string) {
	mesh, ok := r.world.Mesh(c.Model, c.Mesh)
	if !ok {
		return false, "no mesh " + c.Mesh
	}
	return fn(mesh.ID()), mesh.ID()
}
