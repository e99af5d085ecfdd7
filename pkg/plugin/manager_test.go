package plugin

import (
	"path/filepath"
	"testing"

	"github.com/ppacher/shplug/pkg/diag"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func Test_ManagerScenarioVeto(t *testing.T) {
	var journal []string
	allow := &recordingModule{name: "allow", journal: &journal}
	veto := &recordingModule{name: "veto", journal: &journal, code: 5}

	b := NewBuiltin()
	b.RegisterModule("/tmp/mod_allow.so", allow)
	b.RegisterModule("/tmp/mod_veto.so", veto)

	cfg := writeFile(t, t.TempDir(), "bash.plugin", "plugin=/tmp/mod_allow.so\nplugin=/tmp/mod_veto.so\n")

	rec := &eventRecorder{}
	m := New(
		WithConfigPath(cfg),
		WithOpeners(b),
		WithSink(rec),
		WithLookupEnv(envMap(map[string]string{"SHLVL": "2"})),
	)
	m.LoadPlugins()
	defer m.FreePlugins()

	if code := m.InvokeOnShellExecve("alice", "/bin/ls", []string{"ls", "-l"}); code != 5 {
		t.Fatalf("expected 5 but got %d", code)
	}

	if !equalStrings(journal, []string{"allow:init", "veto:init", "allow:execve", "veto:execve"}) {
		t.Errorf("unexpected call sequence %v", journal)
	}
	if allow.execves != 1 {
		t.Errorf("expected mod_allow to be called exactly once but got %d", allow.execves)
	}
	if allow.level != 2 || veto.level != 2 {
		t.Errorf("expected nesting level 2 but got %d/%d", allow.level, veto.level)
	}

	vetoes := rec.find(diag.KindVeto)
	if len(vetoes) != 1 || vetoes[0].Path != "/tmp/mod_veto.so" || vetoes[0].Code != 5 || vetoes[0].ID == "" {
		t.Errorf("unexpected veto events %+v", vetoes)
	}
}

func Test_ManagerCommentedOut(t *testing.T) {
	veto := &recordingModule{name: "veto", code: 5}
	b := NewBuiltin()
	b.RegisterModule("/tmp/mod_veto.so", veto)

	cfg := writeFile(t, t.TempDir(), "bash.plugin", "# plugin=/tmp/mod_veto.so\n")

	m := New(WithConfigPath(cfg), WithOpeners(b))
	m.LoadPlugins()

	if n := len(m.Plugins()); n != 0 {
		t.Errorf("expected no plugins but got %d", n)
	}
	if code := m.InvokeOnShellExecve("alice", "/bin/ls", []string{"ls"}); code != 0 {
		t.Errorf("expected 0 but got %d", code)
	}
	if veto.inits != 0 {
		t.Errorf("commented out module must not be loaded")
	}
}

func Test_ManagerMissingConfig(t *testing.T) {
	m := New(WithConfigPath(filepath.Join(t.TempDir(), "nope")))
	m.LoadPlugins()

	if n := len(m.Plugins()); n != 0 {
		t.Errorf("expected no plugins but got %d", n)
	}
	if code := m.InvokeOnShellExecve("alice", "/bin/ls", nil); code != 0 {
		t.Errorf("expected 0 but got %d", code)
	}
}

func Test_ManagerSkipsBrokenModules(t *testing.T) {
	good := &recordingModule{name: "good"}
	b := NewBuiltin()
	b.RegisterModule("/good.so", good)
	b.Register("/broken.so", Symbols{SymbolInit: func() int { return 0 }})

	dir := t.TempDir()
	cfg := writeFile(t, dir, "bash.plugin", "plugin=/broken.so\nplugin="+filepath.Join(dir, "missing.so")+"\nplugin=/good.so\n")

	rec := &eventRecorder{}
	m := New(WithConfigPath(cfg), WithOpeners(b), WithSink(rec))
	m.LoadPlugins()

	plugins := m.Plugins()
	if len(plugins) != 1 || plugins[0].Path() != "/good.so" {
		t.Fatalf("expected only /good.so to be loaded but got %d plugins", len(plugins))
	}
	if len(rec.find(diag.KindSymbolMissing)) != 1 || len(rec.find(diag.KindOpenFailed)) != 1 {
		t.Errorf("expected one symbol and one open failure but got %v", rec.kinds())
	}
	if b.Opened("/broken.so") != 0 {
		t.Errorf("broken module leaked")
	}
}

func Test_ManagerFreeIdempotent(t *testing.T) {
	mod := &recordingModule{name: "a"}
	b := NewBuiltin()
	b.RegisterModule("/a.so", mod)

	cfg := writeFile(t, t.TempDir(), "bash.plugin", "plugin=/a.so\n")

	rec := &eventRecorder{}
	m := New(WithConfigPath(cfg), WithOpeners(b), WithSink(rec))

	// nothing loaded yet
	m.FreePlugins()
	if len(rec.events) != 0 {
		t.Errorf("freeing an empty registry must not emit diagnostics, got %v", rec.kinds())
	}

	m.LoadPlugins()
	m.FreePlugins()
	m.FreePlugins()

	if mod.uninits != 1 {
		t.Errorf("expected plugin_uninit once but got %d", mod.uninits)
	}
	if b.Opened("/a.so") != 0 {
		t.Errorf("library must be closed")
	}
	if code := m.InvokeOnShellExecve("alice", "/bin/ls", nil); code != 0 || mod.execves != 0 {
		t.Errorf("freed modules must not be invoked")
	}
}

func Test_ManagerStrictInit(t *testing.T) {
	bad := &recordingModule{name: "bad", initRet: 1}
	good := &recordingModule{name: "good"}
	b := NewBuiltin()
	b.RegisterModule("/bad.so", bad)
	b.RegisterModule("/good.so", good)

	cfg := writeFile(t, t.TempDir(), "bash.plugin", "plugin=/bad.so\nplugin=/good.so\n")

	m := New(WithConfigPath(cfg), WithOpeners(b), WithStrictInit(true))
	m.LoadPlugins()

	if p := m.Plugins(); len(p) != 1 || p[0].Path() != "/good.so" {
		t.Errorf("expected only /good.so with strict init")
	}
}

func Test_ManagerNestingLevel(t *testing.T) {
	cases := []struct {
		env      map[string]string
		variable string
		expected int
	}{
		{map[string]string{}, "", 0},
		{map[string]string{"SHLVL": "4"}, "", 4},
		{map[string]string{"SHLVL": "abc"}, "", 0},
		{map[string]string{"SHLVL": "3x"}, "", 3},
		{map[string]string{"SHLVL": "4", "DEPTH": "9"}, "DEPTH", 9},
	}

	for _, c := range cases {
		mod := &recordingModule{name: "a", level: -100}
		b := NewBuiltin()
		b.RegisterModule("/a.so", mod)

		cfg := writeFile(t, t.TempDir(), "bash.plugin", "plugin=/a.so\n")

		opts := []Option{WithConfigPath(cfg), WithOpeners(b), WithLookupEnv(envMap(c.env))}
		if c.variable != "" {
			opts = append(opts, WithLevelVariable(c.variable))
		}

		m := New(opts...)
		m.LoadPlugins()
		m.InvokeOnShellExecve("alice", "/bin/ls", nil)
		m.FreePlugins()

		if mod.level != c.expected {
			t.Errorf("%v: expected level %d but got %d", c.env, c.expected, mod.level)
		}
	}
}

func Test_ManagersAreIndependent(t *testing.T) {
	b := NewBuiltin()
	b.RegisterModule("/veto.so", &recordingModule{name: "veto", code: 1})

	dir := t.TempDir()
	withVeto := writeFile(t, dir, "a.plugin", "plugin=/veto.so\n")
	empty := writeFile(t, dir, "b.plugin", "")

	m1 := New(WithConfigPath(withVeto), WithOpeners(b))
	m2 := New(WithConfigPath(empty), WithOpeners(b))
	m1.LoadPlugins()
	m2.LoadPlugins()

	if m1.InvokeOnShellExecve("u", "/bin/ls", nil) != 1 {
		t.Errorf("expected m1 to veto")
	}
	if m2.InvokeOnShellExecve("u", "/bin/ls", nil) != 0 {
		t.Errorf("expected m2 to allow")
	}
}
