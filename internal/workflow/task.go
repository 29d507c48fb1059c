package workflow

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ProgressSink receives one Step call per declared progress step of a
// running task.
type ProgressSink interface {
	Step()
}

type nopProgress struct{}

func (nopProgress) Step() {}

type Task interface {
	Name() string
	ProgressSteps() int
	Run(ctx context.Context) error
}

// BaseTask carries the slot and progress plumbing shared by every task.
type BaseTask struct {
	name     string
	inputs   []IO
	outputs  []IO
	progress ProgressSink
	log      *logrus.Logger
	started  time.Time
}

func NewBaseTask(name string, log *logrus.Logger) *BaseTask {
	return &BaseTask{
		name:     name,
		progress: nopProgress{},
		log:      log,
	}
}

func (t *BaseTask) Name() string {
	return t.name
}

func (t *BaseTask) ProgressSteps() int {
	return 1
}

func (t *BaseTask) AddInput(io IO) {
	t.inputs = append(t.inputs, io)
}

func (t *BaseTask) AddOutput(io IO) {
	t.outputs = append(t.outputs, io)
}

// Input returns slot i, or nil when the slot does not exist.
func (t *BaseTask) Input(i int) IO {
	if i < 0 || i >= len(t.inputs) {
		return nil
	}
	return t.inputs[i]
}

// Output returns slot i, or nil when the slot does not exist.
func (t *BaseTask) Output(i int) IO {
	if i < 0 || i >= len(t.outputs) {
		return nil
	}
	return t.outputs[i]
}

func (t *BaseTask) InputCount() int {
	return len(t.inputs)
}

func (t *BaseTask) OutputCount() int {
	return len(t.outputs)
}

func (t *BaseTask) SetProgressSink(sink ProgressSink) {
	if sink == nil {
		sink = nopProgress{}
	}
	t.progress = sink
}

func (t *BaseTask) BeginTaskRun() {
	t.started = time.Now()
	if t.log != nil {
		t.log.WithField("task", t.name).Info("Task run started")
	}
}

func (t *BaseTask) EndTaskRun() {
	if t.log != nil {
		t.log.WithFields(logrus.Fields{
			"task":       t.name,
			"elapsed_ms": t.Elapsed().Milliseconds(),
		}).Info("Task run finished")
	}
}

func (t *BaseTask) EmitStepProgress() {
	t.progress.Step()
}

func (t *BaseTask) Elapsed() time.Duration {
	if t.started.IsZero() {
		return 0
	}
	return time.Since(t.started)
}

// ObjectDetectionTask pre-wires the slot layout detection tasks share:
// input 0 carries the source image, output 0 is the reserved image slot and
// output 1 holds the detections. Tasks append further outputs after that.
type ObjectDetectionTask struct {
	BaseTask
}

func NewObjectDetectionTask(name string, log *logrus.Logger) *ObjectDetectionTask {
	t := &ObjectDetectionTask{BaseTask: *NewBaseTask(name, log)}
	t.AddInput(NewImageIO())
	t.AddOutput(NewImageIO())
	t.AddOutput(NewObjectDetectionIO())
	return t
}

func (t *ObjectDetectionTask) InputImage() *ImageIO {
	in, _ := t.Input(0).(*ImageIO)
	return in
}

func (t *ObjectDetectionTask) Detections() *ObjectDetectionIO {
	out, _ := t.Output(1).(*ObjectDetectionIO)
	return out
}

func (t *ObjectDetectionTask) SetNames(names ...string) {
	if out := t.Detections(); out != nil {
		out.SetNames(names...)
	}
}

func (t *ObjectDetectionTask) AddObject(id, classIndex int, confidence, x, y, width, height float64) {
	if out := t.Detections(); out != nil {
		out.AddObject(id, classIndex, confidence, x, y, width, height)
	}
}
