package plugin

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ppacher/shplug/pkg/diag"
)

// MaxLineLength is the size of the line buffer used when reading the
// configuration file. Longer lines are truncated to MaxLineLength-1 bytes
const MaxLineLength = 256

// pluginPrefix introduces a module path in the configuration file
const pluginPrefix = "plugin="

// same set as C isspace() in the POSIX locale
const whitespace = " \t\n\v\f\r"

// ReadConfig reads the configuration file at path and calls load for every
// configured module path in file order. A missing or unreadable file is not
// an error and results in no calls to load
func ReadConfig(path string, sink diag.Sink, load func(path string)) {
	if sink == nil {
		sink = diag.Nop
	}

	f, err := os.Open(path)
	if err != nil {
		sink.Emit(diag.Event{Kind: diag.KindConfigMissing, Path: path, Err: err})
		return
	}
	defer f.Close()

	ParseConfig(f, path, sink, load)
}

// ParseConfig is like ReadConfig but reads the configuration from r. name is
// only used for diagnostics
func ParseConfig(r io.Reader, name string, sink diag.Sink, load func(path string)) {
	if sink == nil {
		sink = diag.Nop
	}

	br := bufio.NewReaderSize(r, MaxLineLength)
	lineNo := 0

	for {
		line, err := readLine(br)
		if err != nil {
			return
		}
		lineNo++

		if line == "" || line[0] == '#' || strings.IndexByte(whitespace, line[0]) >= 0 {
			continue
		}

		// anything after the first whitespace is ignored
		if idx := strings.IndexAny(line, whitespace); idx >= 0 {
			line = line[:idx]
		}

		if strings.HasPrefix(line, pluginPrefix) {
			load(line[len(pluginPrefix):])
			continue
		}

		sink.Emit(diag.Event{Kind: diag.KindUnrecognized, Path: name, Line: lineNo, Text: line})
	}
}

// readLine returns the next line without its line terminator, truncated to
// MaxLineLength-1 bytes. The remainder of an overlong line is discarded
func readLine(br *bufio.Reader) (string, error) {
	var (
		buf      []byte
		consumed bool
	)

	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && consumed {
				return string(buf), nil
			}
			return "", err
		}
		consumed = true

		if room := MaxLineLength - 1 - len(buf); room > 0 {
			if len(frag) > room {
				frag = frag[:room]
			}
			buf = append(buf, frag...)
		}

		if !isPrefix {
			return string(buf), nil
		}
	}
}
