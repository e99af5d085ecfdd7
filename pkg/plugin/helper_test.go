package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppacher/shplug/pkg/diag"
)

// recordingModule is a Module that records its calls into a shared journal
type recordingModule struct {
	name    string
	code    int
	initRet int
	journal *[]string

	inits   int
	uninits int
	execves int
	last    []string
	level   int
}

func (m *recordingModule) OnShellExecve(user string, level int, cmd string, argv []string) int {
	m.execves++
	m.level = level
	m.last = append([]string{user, cmd}, argv...)
	if m.journal != nil {
		*m.journal = append(*m.journal, m.name+":execve")
	}
	return m.code
}

func (m *recordingModule) Init() int {
	m.inits++
	if m.journal != nil {
		*m.journal = append(*m.journal, m.name+":init")
	}
	return m.initRet
}

func (m *recordingModule) Uninit() int {
	m.uninits++
	if m.journal != nil {
		*m.journal = append(*m.journal, m.name+":uninit")
	}
	return 0
}

// eventRecorder collects diagnostic events
type eventRecorder struct {
	events []diag.Event
}

func (r *eventRecorder) Emit(e diag.Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []diag.Kind {
	var k []diag.Kind
	for _, e := range r.events {
		k = append(k, e.Kind)
	}
	return k
}

func (r *eventRecorder) find(kind diag.Kind) []diag.Event {
	var res []diag.Event
	for _, e := range r.events {
		if e.Kind == kind {
			res = append(res, e)
		}
	}
	return res
}

// writeFile writes content to name inside a temporary directory and returns
// the full path
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
