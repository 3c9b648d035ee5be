package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gridpal/gridpal/internal/config"
	"github.com/gridpal/gridpal/internal/control/client"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("gpctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to gridpal control socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n", fs.Name())
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Commands:")
		fmt.Fprintln(fs.Output(), "  layout\t\t\tshow grid geometry and panel positions")
		fmt.Fprintln(fs.Output(), "  move <name> <left> <top>\tmove a panel to a new cell origin")
		fmt.Fprintln(fs.Output(), "  resize <name> <w> <h>\t\tresize a panel to a new cell span")
		fmt.Fprintln(fs.Output(), "  add [--sticky] <name> <left> <top> <w> <h>\tregister a new panel")
		fmt.Fprintln(fs.Output(), "  remove <name>\t\t\tunregister a panel")
		fmt.Fprintln(fs.Output(), "  history\t\t\tshow recent resolution passes")
		fmt.Fprintln(fs.Output(), "  metrics\t\t\tshow pass counters")
		fmt.Fprintln(fs.Output(), "  reload\t\t\ttrigger a live config reload")
		fmt.Fprintln(fs.Output(), "  check --config <path>\tvalidate a configuration file")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing subcommand")
	}

	if args[0] == "check" {
		return runCheck(args[1:], os.Stdout, os.Stderr)
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	switch args[0] {
	case "layout":
		return runLayout(ctx, cli)
	case "move":
		return runMove(ctx, cli, args[1:])
	case "resize":
		return runResize(ctx, cli, args[1:])
	case "add":
		return runAdd(ctx, cli, args[1:])
	case "remove":
		return runRemove(ctx, cli, args[1:])
	case "history":
		return runHistory(ctx, cli)
	case "metrics":
		return runMetrics(ctx, cli)
	case "reload":
		return runReload(ctx, cli)
	default:
		fs.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runCheck(args []string, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configPath == "" {
		fs.Usage()
		return fmt.Errorf("check requires --config <path>")
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(stderr, "Configuration invalid: %v\n", err)
		return fmt.Errorf("configuration validation failed")
	}
	fmt.Fprintln(stdout, "Configuration OK")
	return nil
}

func runLayout(ctx context.Context, cli *client.Client) error {
	status, err := cli.Layout(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Grid: %dx%d cells (%.0fx%.0f px each)\n",
		status.Geometry.Columns, status.Geometry.Rows,
		status.Geometry.CellWidth, status.Geometry.CellHeight)
	if len(status.Panels) == 0 {
		fmt.Println("No panels")
		return nil
	}
	for _, panel := range status.Panels {
		marker := ""
		if panel.Sticky {
			marker = " (sticky)"
		}
		fmt.Printf("  %s%s: %s -> %.0fx%.0f px at (%.0f,%.0f)\n",
			panel.Name, marker, panel.Grid,
			panel.Pixel.Width, panel.Pixel.Height, panel.Pixel.X, panel.Pixel.Y)
	}
	return nil
}

func runMove(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("move requires <name> <left> <top>")
	}
	left, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid left %q", args[1])
	}
	top, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid top %q", args[2])
	}
	if err := cli.MoveItem(ctx, args[0], left, top); err != nil {
		return err
	}
	fmt.Printf("Moved %s to (%d,%d)\n", args[0], left, top)
	return nil
}

func runResize(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("resize requires <name> <width> <height>")
	}
	width, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid width %q", args[1])
	}
	height, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid height %q", args[2])
	}
	if err := cli.ResizeItem(ctx, args[0], width, height); err != nil {
		return err
	}
	fmt.Printf("Resized %s to %dx%d\n", args[0], width, height)
	return nil
}

func runAdd(ctx context.Context, cli *client.Client, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sticky := fs.Bool("sticky", false, "pin the panel at its requested cells")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := fs.Args()
	if len(rest) != 5 {
		return fmt.Errorf("add requires <name> <left> <top> <width> <height>")
	}
	dims := make([]int, 4)
	for i, raw := range rest[1:] {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid cell value %q", raw)
		}
		dims[i] = v
	}
	if err := cli.AddItem(ctx, rest[0], *sticky, dims[0], dims[1], dims[2], dims[3]); err != nil {
		return err
	}
	fmt.Printf("Added %s at (%d,%d) %dx%d\n", rest[0], dims[0], dims[1], dims[2], dims[3])
	return nil
}

func runRemove(ctx context.Context, cli *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove requires <name>")
	}
	if err := cli.RemoveItem(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}

func runHistory(ctx context.Context, cli *client.Client) error {
	result, err := cli.History(ctx)
	if err != nil {
		return err
	}
	if len(result.Passes) == 0 {
		fmt.Println("No resolution passes recorded")
		return nil
	}
	for _, pass := range result.Passes {
		status := "resolved"
		if !pass.Resolved {
			status = "failed"
		}
		line := fmt.Sprintf("%s  %-9s %s (%s)",
			pass.Timestamp.Format(time.RFC3339), pass.Kind, status, pass.Duration)
		if pass.Target != "" {
			line += " target=" + pass.Target
		}
		if pass.Error != "" {
			line += " error=" + pass.Error
		}
		fmt.Println(line)
	}
	return nil
}

func runMetrics(ctx context.Context, cli *client.Client) error {
	snapshot, err := cli.Metrics(ctx)
	if err != nil {
		return err
	}
	if !snapshot.Enabled {
		fmt.Println("Telemetry disabled")
		return nil
	}
	fmt.Printf("Totals: %d passes, %d resolved, %d failed\n",
		snapshot.Totals.Passes, snapshot.Totals.Resolved, snapshot.Totals.Failed)
	for _, kind := range snapshot.Kinds {
		fmt.Printf("  %-9s passes=%d resolved=%d failed=%d total=%s\n",
			kind.Kind, kind.Passes, kind.Resolved, kind.Failed, kind.TotalDuration)
	}
	return nil
}

func runReload(ctx context.Context, cli *client.Client) error {
	if err := cli.Reload(ctx); err != nil {
		return err
	}
	fmt.Println("Reload requested")
	return nil
}
