package main

import (
	"io/ioutil"
	"log"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"text/template"

	"github.com/alecthomas/kingpin"
)

var packagePath = kingpin.Arg("package", "Go package path").Required().String()
var packageSymbol = kingpin.Arg("symbol", "Variable exported by the package that implements plugin.Module").Default("Module").String()
var outputPath = kingpin.Flag("output", "Directory where the file should be written to").Short('o').Default(".").String()

// tmpl exports the entry points expected by the native opener and forwards
// them to a plugin.Module
var tmpl = `package main

import "C"

import (
	"unsafe"

	p "{{.Package}}"
)

//export on_shell_execve
func on_shell_execve(user *C.char, level C.int, cmd *C.char, argv **C.char) C.int {
	var args []string
	if argv != nil {
		for _, a := range unsafe.Slice(argv, 1<<20) {
			if a == nil {
				break
			}
			args = append(args, C.GoString(a))
		}
	}

	return C.int(p.{{.Symbol}}.OnShellExecve(C.GoString(user), int(level), C.GoString(cmd), args))
}

//export plugin_init
func plugin_init() C.int {
	return C.int(p.{{.Symbol}}.Init())
}

//export plugin_uninit
func plugin_uninit() C.int {
	return C.int(p.{{.Symbol}}.Uninit())
}

func main() {}
`

func main() {
	kingpin.Parse()

	t, err := template.New("template").Parse(tmpl)
	if err != nil {
		log.Fatal(err)
	}

	tmpfile, err := ioutil.TempFile("", "shplug-module.*.go")
	if err != nil {
		log.Fatal(err)
	}
	defer os.Remove(tmpfile.Name()) // clean up
	defer tmpfile.Close()

	if err := t.Execute(tmpfile, map[string]string{
		"Package": *packagePath,
		"Symbol":  *packageSymbol,
	}); err != nil {
		log.Fatal(err)
	}

	name := path.Base(*packagePath)
	output := filepath.Join(*outputPath, name+".so")

	cmd := exec.Command("go", "build", "-o", output, "-buildmode=c-shared", "-ldflags", "-s -w", tmpfile.Name())
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout

	if err := cmd.Run(); err != nil {
		log.Fatal(err)
	}
}
