package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/talescript/internal/artifact"
	"github.com/funvibe/talescript/internal/config"
	"github.com/funvibe/talescript/internal/event"
	"github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/pkg/engine"
)

const usage = `Usage: %[1]s <command> [arguments]

Commands:
  build   [root] [-o dir]             compile scripts and write build artifacts
  run     [root] [label] [key=value]  play a label and print its events
  labels  [root]                      list the labels of the last build
  history [root] [-keep n]            list recorded builds, optionally pruning old ones
  version                             print the version

Environment:
  TALESCRIPT_OUT_DIR, TALESCRIPT_ENTRY, TALESCRIPT_SELECT, TALESCRIPT_SEED
  TALESCRIPT_LOG_LEVEL, TALESCRIPT_LOG_FORMAT, TALESCRIPT_LOG_FILE
`

func main() {
	log.Init(log.FromEnv())

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = handleBuild(os.Args[2:])
	case "run":
		err = handleRun(os.Args[2:])
	case "labels":
		err = handleLabels(os.Args[2:])
	case "history":
		err = handleHistory(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Printf("%s %s\n", config.AppName, config.Version)
	case "help", "-help", "--help", "-h":
		fmt.Printf(usage, os.Args[0])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// splitArgs separates positional arguments from "-name value" flags.
func splitArgs(args []string) (positional []string, flags map[string]string, err error) {
	flags = make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s needs a value", arg)
		}
		flags[strings.TrimLeft(arg, "-")] = args[i+1]
		i++
	}
	return positional, flags, nil
}

func rootArg(positional []string) string {
	if len(positional) > 0 {
		return positional[0]
	}
	return "."
}

func handleBuild(args []string) error {
	positional, flags, err := splitArgs(args)
	if err != nil {
		return err
	}
	e, err := engine.New(rootArg(positional), flags["o"])
	if err != nil {
		return err
	}
	defer e.Close()

	p := newPrinter()
	for _, d := range e.Diagnostics() {
		p.warn(d.Error())
	}
	fmt.Printf("build %s: %d labels written to %s\n", e.BuildID(), len(e.Paths()), e.OutDir())
	return nil
}

func handleRun(args []string) error {
	positional, _, err := splitArgs(args)
	if err != nil {
		return err
	}
	filters := make(map[string]string)
	var rest []string
	for _, arg := range positional {
		if key, value, ok := strings.Cut(arg, "="); ok {
			filters[key] = value
			continue
		}
		rest = append(rest, arg)
	}

	e, err := engine.New(rootArg(rest), "")
	if err != nil {
		return err
	}
	defer e.Close()

	label := e.Entry()
	if len(rest) > 1 {
		label = rest[1]
	}
	if label == "" {
		return errors.New("no label given and the project has no entry")
	}

	g, err := e.Generator(label, filters)
	if err != nil {
		return err
	}
	defer g.Close()

	p := newPrinter()
	for {
		ev, ok, err := g.Resume()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		p.event(ev)
	}
}

func openManifest(root string) (*artifact.Manifest, error) {
	path, err := config.FindProject(root)
	if err != nil {
		return nil, err
	}
	project := config.DefaultProject(root)
	if path != "" {
		if project, err = config.LoadProject(path); err != nil {
			return nil, err
		}
	}
	if err := project.ApplyEnv(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(artifact.ManifestPath(project.OutputDir())); err != nil {
		return nil, fmt.Errorf("no build found in %s, run build first", project.OutputDir())
	}
	return artifact.OpenManifest(project.OutputDir())
}

func handleLabels(args []string) error {
	positional, _, err := splitArgs(args)
	if err != nil {
		return err
	}
	m, err := openManifest(rootArg(positional))
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := context.Background()
	b, err := m.LatestBuild(ctx)
	if err != nil {
		return err
	}
	labels, err := m.Labels(ctx, b.ID)
	if err != nil {
		return err
	}
	for _, l := range labels {
		line := fmt.Sprintf("%4d  %s%s", l.ID, strings.Repeat("  ", l.Depth), l.Path)
		if l.Attributes != "" {
			line += "  [" + l.Attributes + "]"
		}
		if len(l.Actors) > 0 {
			line += "  " + strings.Join(l.Actors, ", ")
		}
		fmt.Printf("%s  (%s)\n", line, l.File)
	}
	return nil
}

func handleHistory(args []string) error {
	positional, flags, err := splitArgs(args)
	if err != nil {
		return err
	}
	m, err := openManifest(rootArg(positional))
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := context.Background()
	if keep, ok := flags["keep"]; ok {
		var n int
		if _, err := fmt.Sscanf(keep, "%d", &n); err != nil || n < 0 {
			return fmt.Errorf("invalid -keep value %q", keep)
		}
		removed, err := m.Prune(ctx, n)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d builds\n", removed)
	}

	builds, err := m.Builds(ctx)
	if err != nil {
		return err
	}
	for _, b := range builds {
		status := "ok"
		if !b.OK {
			status = "failed"
		}
		fmt.Printf("%s  %s  %-6s  %d sources  %d labels  %s\n",
			b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), status, b.Sources, b.Labels, b.App)
	}
	return nil
}

// printer writes events to stdout, colored when stdout is a terminal.
type printer struct {
	color bool
}

func newPrinter() *printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return &printer{color: tty && !noColor && os.Getenv("TERM") != "dumb"}
}

func (p *printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (p *printer) warn(s string) {
	fmt.Println(p.paint("33", "warning: ") + s)
}

func (p *printer) event(ev engine.ScriptEvent) {
	switch ev := ev.(type) {
	case event.ActorEvent:
		fmt.Println(p.paint("1;36", ev.Name))
	case event.TalkEvent:
		fmt.Println("  " + ev.Text)
	case event.JumpEvent:
		fmt.Println(p.paint("2", "-> "+ev.Label))
	case event.CallEvent:
		fmt.Println(p.paint("2", "=> "+ev.Label))
	case event.ErrorEvent:
		fmt.Println(p.paint("31", "error: ") + ev.Message)
	case event.ExtensionEvent:
		fmt.Println(p.paint("35", "["+ev.Name+"]"), ev.Payload)
	default:
		fmt.Println(ev.String())
	}
}
