package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/stepwright/stepwright/internal/logging"
	"github.com/stepwright/stepwright/internal/model"
	"github.com/stepwright/stepwright/internal/recorder"
	"github.com/stepwright/stepwright/internal/runner"
	"github.com/stepwright/stepwright/internal/storage"
	"github.com/stepwright/stepwright/internal/wait"
	"github.com/stepwright/stepwright/internal/winctl"
	"github.com/stepwright/stepwright/pkg/utils"
)

func main() {
	runFile := flag.String("run", "", "Path to a project file to replay")
	recordFile := flag.String("record", "", "Path to write a recorded project to (stop with Ctrl+C)")
	name := flag.String("name", "Recorded workflow", "Project name used when recording")
	target := flag.Int64("target", 0, "Default target window handle for replay")
	flag.Parse()

	log := logging.NewLogger()
	log.Debug("starting", "os", utils.GetCurrentOS())

	settings, err := storage.LoadSettings(storage.SettingsPath())
	if err != nil {
		log.Warn("settings unreadable, using defaults", "error", err)
	}

	switch {
	case *runFile != "":
		if err := runProject(log, *runFile, *target, settings); err != nil {
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
			os.Exit(1)
		}
	case *recordFile != "":
		if err := recordProject(log, *recordFile, *name, settings); err != nil {
			fmt.Fprintf(os.Stderr, "Recording failed: %v\n", err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runProject(log *slog.Logger, path string, target int64, settings storage.Settings) error {
	project, err := storage.LoadProject(path)
	if err != nil {
		return err
	}
	log.Info("replaying project", "name", project.Name, "steps", len(project.Steps))

	windows := &winctl.SystemWindows{Log: log}
	probes := wait.Probes{
		WindowTitle: windows.Title,
		Processes:   winctl.ProcessNames,
		Clipboard:   winctl.ReadClipboard,
	}

	r := runner.New(project, windows, &winctl.RobotInput{Log: log}, probes, runner.Options{
		DefaultTarget: target,
		StepDelay:     time.Duration(settings.StepDelayMS) * time.Millisecond,
		Logger:        log,
	})

	return r.Run(nil, func(i, n int, step model.Step) {
		log.Info("step done", "index", i, "total", n, "action", step.Action)
	})
}

func recordProject(log *slog.Logger, path, name string, settings storage.Settings) error {
	project := model.NewProject(name)

	windows := &winctl.SystemWindows{Log: log}
	rec := recorder.New(func(step model.Step) {
		project.AppendStep(step)
		log.Info("step recorded", "action", step.Action, "window", step.WindowTitle)
	}, windows, recorder.Config{
		TypeFlushDelay:       time.Duration(settings.TypeFlushDelayMS) * time.Millisecond,
		IgnoreShortClipboard: settings.IgnoreShortClipboard,
		ClipboardPoll:        time.Duration(settings.ClipboardPollMS) * time.Millisecond,
	}, log)

	hk := recorder.NewHook(rec)
	rec.Start()
	hk.Start()

	fmt.Println("Recording... press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	hk.Stop()
	rec.Stop()

	if err := storage.SaveProject(path, project); err != nil {
		return err
	}
	log.Info("project saved", "path", path, "steps", len(project.Steps))
	return nil
}
