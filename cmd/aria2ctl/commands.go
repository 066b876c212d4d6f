package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the daemon and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		if !s.CheckConnection(cmd.Context()) {
			return fmt.Errorf("daemon at %s is not reachable", s.RPC().URL())
		}
		if err := s.SyncTasks(cmd.Context()); err != nil {
			return err
		}
		t := s.Tasks()
		fmt.Printf("server:      %s (%s)\n", s.Name(), s.RPC().URL())
		fmt.Printf("downloading: %t\n", s.IsDownloading())
		fmt.Printf("active:      %d\nwaiting:     %d\npaused:      %d\nstopped:     %d\n",
			len(t.Active), len(t.Waiting), len(t.Paused), len(t.Stopped))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in every bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		if err := s.SyncTasks(cmd.Context()); err != nil {
			return err
		}
		t := s.Tasks()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GID\tSTATUS\tPROGRESS\tSPEED\tNAME")
		for _, bucket := range [][]session.Task{t.Active, t.Waiting, t.Paused, t.Stopped} {
			for _, task := range matchTasks(bucket, flagQuery) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s/s\t%s\n",
					task.GID, task.Status, progress(task), humanBytes(task.DownloadSpeed), task.Name)
			}
		}
		return w.Flush()
	},
}

var addCmd = &cobra.Command{
	Use:   "add URI...",
	Short: "Add a download from HTTP/FTP/magnet URIs pointing at the same file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gid, err := newSession(cmd).AddURI(cmd.Context(), args, flagSeeding)
		if err != nil {
			return err
		}
		fmt.Println(gid)
		return nil
	},
}

var addTorrentCmd = &cobra.Command{
	Use:   "add-torrent FILE",
	Short: "Upload a .torrent file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		// 预览失败不阻止上传，由守护进程决定是否接受
		if name, files, err := describeTorrent(bytes.NewReader(data)); err != nil {
			log.Warn().Err(err).Str("file", args[0]).Msg("could not parse torrent locally")
		} else {
			fmt.Fprintf(os.Stderr, "%s (%d files)\n", name, files)
		}

		gid, err := newSession(cmd).AddTorrent(cmd.Context(), data, flagSeeding)
		if err != nil {
			return err
		}
		fmt.Println(gid)
		return nil
	},
}

var addMetalinkCmd = &cobra.Command{
	Use:   "add-metalink FILE",
	Short: "Upload a .metalink / .meta4 file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		gids, err := newSession(cmd).AddMetalink(cmd.Context(), data, flagSeeding)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(gids, "\n"))
		return nil
	},
}

func statusCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " GID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newSession(cmd).ChangeTaskStatus(cmd.Context(), method, args)
		},
	}
}

var (
	pauseCmd  = statusCommand("pause", "Pause downloads", session.MethodPause)
	resumeCmd = statusCommand("resume", "Resume paused downloads", session.MethodUnpause)
	removeCmd = statusCommand("remove", "Remove downloads", session.MethodRemove)
)

var purgeCmd = &cobra.Command{
	Use:   "purge GID...",
	Short: "Drop finished downloads from the daemon's result list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newSession(cmd).PurgeTasks(cmd.Context(), args)
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the daemon's global options",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)
		if err := s.SyncOptions(cmd.Context()); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Options())
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, addTorrentCmd, addMetalinkCmd} {
		c.Flags().BoolVar(&flagSeeding, "seeding", false, "keep seeding after completion (BitTorrent)")
	}
	listCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "fuzzy filter on task name")
}

// describeTorrent returns the torrent's name and file count.
func describeTorrent(r io.Reader) (string, int, error) {
	mi, err := metainfo.Load(r)
	if err != nil {
		return "", 0, err
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return "", 0, err
	}
	if info.IsDir() {
		return info.Name, len(info.Files), nil
	}
	return info.Name, 1, nil
}

func matchTasks(tasks []session.Task, q string) []session.Task {
	if q == "" {
		return tasks
	}
	var out []session.Task
	for _, t := range tasks {
		if fuzzy.MatchFold(q, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

func progress(t session.Task) string {
	if t.TotalLength == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(t.CompletedLength)*100/float64(t.TotalLength))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
