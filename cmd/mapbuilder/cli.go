package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/viper"

	"github.com/tdmap/mapbuilder/internal/config"
	"github.com/tdmap/mapbuilder/internal/project"
	"github.com/tdmap/mapbuilder/internal/session"
	"github.com/tdmap/mapbuilder/internal/storage"
	"github.com/tdmap/mapbuilder/pkg/core"
)

func run(ctx context.Context, w io.Writer, command string, args []string) error {
	switch command {
	case "list":
		return listProjects(w)
	case "new":
		if len(args) < 1 {
			return fmt.Errorf("new: project name required")
		}
		background := ""
		if len(args) > 1 {
			background = args[1]
		}
		return newProject(w, args[0], background)
	case "status", "log", "undo", "redo":
		if len(args) < 1 {
			return fmt.Errorf("%s: project name required", command)
		}
		return withSession(ctx, args[0], func(sess *session.Session) error {
			switch command {
			case "status":
				return printStatus(w, sess)
			case "log":
				return printLog(ctx, w, sess)
			case "undo":
				return step(ctx, w, sess, core.KeyboardEvent{Ctrl: true, Undo: true})
			default:
				return step(ctx, w, sess, core.KeyboardEvent{Ctrl: true, Redo: true})
			}
		})
	case "replay":
		if len(args) < 2 {
			return fmt.Errorf("replay: project and frames file required")
		}
		return withSession(ctx, args[0], func(sess *session.Session) error {
			return replayFile(ctx, w, sess, args[1])
		})
	case "dump":
		if len(args) < 2 {
			return fmt.Errorf("dump: project and target path required")
		}
		return withSession(ctx, args[0], func(sess *session.Session) error {
			db := sess.Database()
			if db == nil {
				return fmt.Errorf("dump: storage type %q has no database", config.GetStorageConfig().Type)
			}
			if err := db.DumpToDisk(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(w, "dumped history to %s\n", args[1])
			return nil
		})
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func withSession(ctx context.Context, name string, fn func(*session.Session) error) error {
	sess, cleanup, err := openSession(ctx, name)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(sess)
}

func listProjects(w io.Writer) error {
	names, err := project.List(viper.GetString("projectsDir"))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "no projects")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func newProject(w io.Writer, name, background string) error {
	paths, err := project.Create(viper.GetString("projectsDir"), name, background, projectFiles())
	if err != nil {
		return err
	}
	Logger.Info("Created project", "project", paths.Name, "dir", paths.Dir)
	fmt.Fprintf(w, "created %s\n", paths.Dir)
	return nil
}

func printStatus(w io.Writer, sess *session.Session) error {
	hist := sess.History()
	store := sess.Store()

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "project:\t%s\n", sess.Paths().Name)
	fmt.Fprintf(tw, "markers:\t%d (%d selected)\n", store.Len(), store.NumSelected())
	fmt.Fprintf(tw, "position:\t%d of %d\n", hist.Position()+1, hist.Len())
	fmt.Fprintf(tw, "current:\t%s\n", hist.Current().Short())
	fmt.Fprintf(tw, "head:\t%s\n", hist.Head().Short())
	if bg := sess.Paths().Background; bg != "" {
		fmt.Fprintf(tw, "background:\t%s\n", bg)
	}
	return tw.Flush()
}

// printLog lists the chain head first, marking the current position.
func printLog(ctx context.Context, w io.Writer, sess *session.Session) error {
	hist := sess.History()
	chain := hist.Chain()
	inspector, _ := sess.Backend().(storage.Inspector)

	for i := len(chain) - 1; i >= 0; i-- {
		mark := " "
		if i == hist.Position() {
			mark = "*"
		}
		line := fmt.Sprintf("%s %3d %s", mark, i, chain[i].Short())
		if inspector != nil {
			info, err := inspector.Info(ctx, chain[i])
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" %s %s %s", info.CreatedAt.Format("2006-01-02 15:04:05"), info.Author, info.Message)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func step(ctx context.Context, w io.Writer, sess *session.Session, kb core.KeyboardEvent) error {
	res := sess.Step(ctx, kb, core.PointerEvent{})
	if res.Err != nil {
		return res.Err
	}
	if !res.Undone && !res.Redone {
		fmt.Fprintln(w, "nothing to do")
		return nil
	}
	fmt.Fprintf(w, "at %d of %d (%s), %d markers\n",
		sess.History().Position()+1, sess.History().Len(), sess.History().Current().Short(), sess.Store().Len())
	return nil
}

func replayFile(ctx context.Context, w io.Writer, sess *session.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open frames: %w", err)
	}
	defer f.Close()

	frames, err := ReadFrames(f)
	if err != nil {
		return err
	}

	sum := Replay(ctx, sess, frames, viper.GetFloat64("input.dragThreshold"))
	Logger.Info("Replay finished", "frames", sum.Frames, "saves", sum.Saves, "failures", sum.Failures)
	fmt.Fprintf(w, "%d frames, %d saves, %d undos, %d redos, %d failures; %d markers at %d of %d\n",
		sum.Frames, sum.Saves, sum.Undos, sum.Redos, sum.Failures,
		sess.Store().Len(), sess.History().Position()+1, sess.History().Len())
	if sum.Failures > 0 {
		return fmt.Errorf("replay: %d persistence failures", sum.Failures)
	}
	return nil
}
