package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"syscall"

	"github.com/alecthomas/kingpin"
	shellquote "github.com/kballard/go-shellquote"
	"github.com/ppacher/shplug/pkg/diag"
	"github.com/ppacher/shplug/pkg/plugin"
	"github.com/ppacher/shplug/pkg/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var settingsPath = kingpin.Flag("settings", "Path to the settings file").Short('s').Default(settings.DefaultPath).String()
var pluginConfig = kingpin.Flag("config", "Plugin configuration file (overrides the settings file)").Short('C').String()
var logLevel = kingpin.Flag("log-level", "Log level (overrides the settings file)").Short('l').String()

var execCommand = kingpin.Command("exec", "Ask all plugins and replace this process with the command if none vetoes")
var execUser = execCommand.Flag("user", "User name reported to plugins").Short('u').String()
var execLine = execCommand.Flag("command", "Command line to execute").Short('c').String()
var execArgs = execCommand.Arg("args", "Command and arguments to execute").Strings()

var checkCommand = kingpin.Command("check", "Load all configured plugins, list them and unload them again")

// exit code used when the command cannot be found, like most shells do
const exitNotFound = 127

// exit code used for vetoes that would otherwise be truncated to 0
const exitDenied = 1

func main() {
	command := kingpin.Parse()

	s, err := settings.Load(*settingsPath)
	if err != nil {
		logrus.Fatal(err)
	}
	if *pluginConfig != "" {
		s.PluginConfig = *pluginConfig
	}
	if *logLevel != "" {
		s.LogLevel = *logLevel
	}

	if err := setupLogging(s); err != nil {
		logrus.Fatal(err)
	}

	gatherer := prometheus.NewRegistry()
	sink, closeSinks := setupSinks(s, gatherer)

	m := plugin.New(
		plugin.WithConfigPath(s.PluginConfig),
		plugin.WithSink(sink),
		plugin.WithLevelVariable(s.LevelVariable),
		plugin.WithStrictInit(s.StrictInit),
	)
	m.LoadPlugins()

	// shutdown unloads all plugins and flushes diagnostics
	shutdown := func() {
		m.FreePlugins()
		closeSinks()

		if s.MetricsTextfile != "" {
			if err := prometheus.WriteToTextfile(s.MetricsTextfile, gatherer); err != nil {
				logrus.Warnf("failed to write metrics to %s: %s", s.MetricsTextfile, err.Error())
			}
		}
	}

	switch command {
	case checkCommand.FullCommand():
		plugins := m.Plugins()
		for _, p := range plugins {
			fmt.Printf("%s\t%s\n", p.Name(), p.Path())
		}
		logrus.Debugf("found %d plugins in %s", len(plugins), s.PluginConfig)
		shutdown()

	case execCommand.FullCommand():
		os.Exit(runExec(m, shutdown))
	}
}

// runExec only returns if the command has not been executed
func runExec(m *plugin.Manager, shutdown func()) int {
	argv := *execArgs
	if *execLine != "" {
		var err error
		argv, err = shellquote.Split(*execLine)
		if err != nil {
			logrus.Errorf("invalid command line: %s", err.Error())
			shutdown()
			return 2
		}
	}

	if len(argv) == 0 {
		logrus.Error("no command given")
		shutdown()
		return 2
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		logrus.Errorf("%s: command not found", argv[0])
		shutdown()
		return exitNotFound
	}

	if code := m.InvokeOnShellExecve(currentUser(), path, argv); code != 0 {
		logrus.Warnf("execution of %s denied by plugin (%d)", path, code)
		shutdown()
		return exitStatus(code)
	}

	shutdown()

	err = syscall.Exec(path, argv, os.Environ())

	// only reached if exec failed
	logrus.Errorf("failed to execute %s: %s", path, err.Error())
	return 126
}

// exitStatus maps a veto code to a process exit status. Only the low byte of
// an exit status survives, a veto must never turn into 0
func exitStatus(code int) int {
	if code == 0 {
		return 0
	}
	if code&0xff == 0 {
		return exitDenied
	}
	return code & 0xff
}

func currentUser() string {
	if *execUser != "" {
		return *execUser
	}

	if u, err := user.Current(); err == nil {
		return u.Username
	}

	return os.Getenv("USER")
}

func setupLogging(s *settings.Settings) error {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch s.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q", s.LogFormat)
	}

	return nil
}

func setupSinks(s *settings.Settings, reg prometheus.Registerer) (diag.Sink, func()) {
	sinks := []diag.Sink{diag.NewLogrus(logrus.StandardLogger())}
	closer := func() {}

	if s.MetricsTextfile != "" {
		metrics, err := diag.NewMetrics(reg)
		if err != nil {
			logrus.Warnf("failed to register metrics: %s", err.Error())
		} else {
			sinks = append(sinks, metrics)
		}
	}

	if s.MQTT.Broker != "" {
		mq, err := diag.DialMQTT(s.MQTT.Broker, s.MQTT.ClientID, s.MQTT.Topic)
		if err != nil {
			// plugin diagnostics are optional, never fail the host because of them
			logrus.Warnf("failed to connect to %s: %s", s.MQTT.Broker, err.Error())
		} else {
			mq.OnError = func(err error) {
				logrus.Debugf("failed to publish plugin event: %s", err.Error())
			}
			sinks = append(sinks, mq)
			closer = mq.Close
		}
	}

	return diag.Multi(sinks...), closer
}
