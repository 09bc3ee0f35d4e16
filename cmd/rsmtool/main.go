// rsmtool inspects RSM models, loose or inside GRF archives, and writes
// stage skeletons for them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/animdirector/internal/stage"
	"github.com/Faultbox/animdirector/pkg/formats"
	"github.com/Faultbox/animdirector/pkg/grf"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "list", "ls":
		return cmdList(args, out)
	case "info":
		return cmdInfo(args, out)
	case "stage":
		return cmdStage(args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rsmtool - RSM model utility

Usage:
  rsmtool <command> [options]

Commands:
  list <file.grf> [pattern]           List RSM models in an archive
  info <file.rsm>                     Show the node tree and keyframes
  info <file.grf> <path>              Same, for a model inside an archive
  stage [-id ID] <file.rsm>           Print a stage skeleton for a model
  stage [-id ID] <file.grf> <path>

Examples:
  rsmtool list data.grf chest
  rsmtool info data.grf data/model/chest.rsm
  rsmtool stage -id Chest data.grf data/model/chest.rsm > chest.yaml`)
}

func cmdList(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		return errUsage
	}
	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := strings.ToLower(fs.Arg(1))
	count := 0
	for _, f := range archive.List() {
		if path.Ext(f) != ".rsm" {
			continue
		}
		if pattern != "" {
			matched, _ := path.Match(pattern, path.Base(f))
			if !matched && !strings.Contains(f, pattern) {
				continue
			}
		}
		fmt.Fprintln(out, f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	return nil
}

// source is where a model was read from, as written into a stage file.
type source struct {
	archive string
	rsm     string
}

func openModel(args []string) (*formats.RSM, source, error) {
	if len(args) < 1 {
		return nil, source{}, errUsage
	}
	if strings.EqualFold(filepath.Ext(args[0]), ".grf") {
		if len(args) < 2 {
			return nil, source{}, errUsage
		}
		archive, err := grf.Open(args[0])
		if err != nil {
			return nil, source{}, err
		}
		defer archive.Close()
		data, err := archive.Read(args[1])
		if err != nil {
			return nil, source{}, err
		}
		rsm, err := formats.ParseRSM(data)
		if err != nil {
			return nil, source{}, fmt.Errorf("%s: %w", args[1], err)
		}
		return rsm, source{archive: args[0], rsm: args[1]}, nil
	}
	rsm, err := formats.ParseRSMFile(args[0])
	return rsm, source{rsm: args[0]}, err
}

func cmdInfo(args []string, out io.Writer) error {
	rsm, src, err := openModel(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Model:     %s\n", src.rsm)
	fmt.Fprintf(out, "Version:   %s\n", rsm.Version)
	fmt.Fprintf(out, "Duration:  %.3fs\n", rsm.Duration())
	fmt.Fprintf(out, "Nodes:     %d\n", len(rsm.Nodes))
	fmt.Fprintln(out)

	root := rsm.Node(rsm.RootNode)
	if root == nil {
		return fmt.Errorf("root node %q not found", rsm.RootNode)
	}
	seen := make(map[string]bool)
	var walk func(n *formats.RSMNode, depth int)
	walk = func(n *formats.RSMNode, depth int) {
		if seen[n.Name] {
			return
		}
		seen[n.Name] = true
		fmt.Fprintf(out, "%s%s  verts=%d faces=%d keys=%d/%d/%d\n",
			strings.Repeat("  ", depth), n.Name, len(n.Vertices), n.FaceCount,
			len(n.PosKeys), len(n.RotKeys), len(n.ScaleKeys))
		for _, c := range rsm.Children(n.Name) {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return nil
}

func cmdStage(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	id := fs.String("id", "", "Model id (default: file name)")
	clip := fs.String("clip", "", "Name for the imported clip")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rsm, src, err := openModel(fs.Args())
	if err != nil {
		return err
	}
	if *id == "" {
		base := path.Base(strings.ReplaceAll(src.rsm, "\\", "/"))
		*id = strings.TrimSuffix(base, path.Ext(base))
	}

	st := stage.Stage{
		Name: *id,
		Models: []stage.ModelSpec{{
			ID:      *id,
			RSM:     src.rsm,
			RSMClip: *clip,
			Archive: src.archive,
		}},
	}
	if rsm.HasAnimation() {
		clipName := *clip
		if clipName == "" {
			clipName = "idle"
		}
		st.Script = []stage.Command{{Do: "play", Model: *id, Animation: clipName}}
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return err
	}
	return enc.Close()
}
