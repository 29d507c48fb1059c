package workflow

import (
	"errors"
	"sort"
	"sync"
)

type AlgoType string

const (
	AlgoInfer AlgoType = "INFER"
	AlgoTrain AlgoType = "TRAIN"
)

const TaskObjectDetection = "OBJECT_DETECTION"

// TaskInfo describes an algorithm the way the workflow catalog lists it.
type TaskInfo struct {
	Name               string   `json:"name"`
	ShortDescription   string   `json:"short_description"`
	Path               string   `json:"path"`
	Version            string   `json:"version"`
	IconPath           string   `json:"icon_path,omitempty"`
	Authors            string   `json:"authors"`
	Article            string   `json:"article,omitempty"`
	Journal            string   `json:"journal,omitempty"`
	Year               int      `json:"year"`
	License            string   `json:"license"`
	DocumentationLink  string   `json:"documentation_link"`
	Repository         string   `json:"repository,omitempty"`
	OriginalRepository string   `json:"original_repository,omitempty"`
	Keywords           string   `json:"keywords"`
	AlgoType           AlgoType `json:"algo_type"`
	AlgoTasks          []string `json:"algo_tasks"`
}

// TaskFactory builds task instances from the host's string-keyed parameter
// exchange. A nil values map means defaults.
type TaskFactory interface {
	Info() TaskInfo
	Create(values map[string]string) (Task, error)
}

var ErrFactoryRegistered = errors.New("task factory already registered")

type Registry struct {
	mu        sync.RWMutex
	factories map[string]TaskFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]TaskFactory)}
}

func (r *Registry) Register(f TaskFactory) error {
	name := f.Info().Name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return ErrFactoryRegistered
	}
	r.factories[name] = f

	return nil
}

func (r *Registry) Factory(name string) (TaskFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	return f, ok
}

func (r *Registry) Infos() []TaskInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TaskInfo, 0, len(r.factories))
	for _, f := range r.factories {
		infos = append(infos, f.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}
