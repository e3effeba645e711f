package main

import (
	"fmt"
	"strconv"

	"horus-go/internal/horus"

	"github.com/spf13/cobra"
)

func printPlaylist(p *horus.Playlist) {
	fmt.Printf("%s  %s  (%d clips, %d frames)\n", p.ID, p.Name, len(p.Clips), p.TotalDuration())
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	for _, c := range p.Clips {
		fmt.Printf("  %6d  %5d  %s  %s/%s/%s %s %s  %-10s  %d comment(s)\n",
			c.Position, c.Duration, c.ID, c.Episode, c.Sequence, c.Shot, c.Department, c.Version, c.Status, c.CommentCount)
	}
}

// playlist command
var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage review playlists",
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Playlists")
		if err != nil {
			return err
		}
		defer a.Close()

		playlists, err := a.Playlists()
		if err != nil {
			return err
		}
		if len(playlists) == 0 {
			fmt.Println("No playlists.")
			return nil
		}
		for _, p := range playlists {
			fmt.Printf("%s  %-24s  %3d clips  %s\n", p.ID, p.Name, len(p.Clips), p.CreatedBy)
		}
		return nil
	},
}

var playlistShowCmd = &cobra.Command{
	Use:   "show PLAYLIST_ID",
	Short: "Show the clips of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Playlist")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Playlist(args[0])
		if err != nil {
			return err
		}
		printPlaylist(p)
		return nil
	},
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp("CreatePlaylist")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.CreatePlaylist(args[0], description)
		if err != nil {
			return fmt.Errorf("creating playlist: %w", err)
		}
		fmt.Printf("Created playlist %s\n", p.ID)
		return nil
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "rename PLAYLIST_ID NAME",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RenamePlaylist")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.RenamePlaylist(args[0], args[1]); err != nil {
			return fmt.Errorf("renaming playlist: %w", err)
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete PLAYLIST_ID",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeletePlaylist")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeletePlaylist(args[0]); err != nil {
			return fmt.Errorf("deleting playlist: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var playlistDuplicateCmd = &cobra.Command{
	Use:   "duplicate PLAYLIST_ID [NAME]",
	Short: "Copy a playlist with fresh ids",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}

		a, err := newApp("DuplicatePlaylist")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.DuplicatePlaylist(args[0], name)
		if err != nil {
			return fmt.Errorf("duplicating playlist: %w", err)
		}
		fmt.Printf("Created %s  %s\n", p.ID, p.Name)
		return nil
	},
}

var playlistAddClipCmd = &cobra.Command{
	Use:   "add-clip PLAYLIST_ID EPISODE SEQUENCE SHOT DEPARTMENT VERSION",
	Short: "Append a version to a playlist",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetInt("duration")

		a, err := newApp("AddClip")
		if err != nil {
			return err
		}
		defer a.Close()

		clip, err := a.AddClip(args[0], keyFromArgs(args[1:]), duration)
		if err != nil {
			return fmt.Errorf("adding clip: %w", err)
		}
		fmt.Printf("Added clip %s at frame %d\n", clip.ID, clip.Position)
		return nil
	},
}

var playlistRemoveClipCmd = &cobra.Command{
	Use:   "remove-clip PLAYLIST_ID CLIP_ID",
	Short: "Remove a clip from a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveClip")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveClip(args[0], args[1]); err != nil {
			return fmt.Errorf("removing clip: %w", err)
		}
		fmt.Printf("Removed %s\n", args[1])
		return nil
	},
}

var playlistReorderCmd = &cobra.Command{
	Use:   "reorder PLAYLIST_ID CLIP_ID...",
	Short: "Put the clips of a playlist in a new order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReorderClips")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ReorderClips(args[0], args[1:]); err != nil {
			return fmt.Errorf("reordering clips: %w", err)
		}
		fmt.Printf("Reordered %d clip(s)\n", len(args)-1)
		return nil
	},
}

var playlistSetDurationCmd = &cobra.Command{
	Use:   "set-duration PLAYLIST_ID CLIP_ID FRAMES",
	Short: "Change the length of a clip",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		frames, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid frame count %q: %w", args[2], err)
		}

		a, err := newApp("SetClipDuration")
		if err != nil {
			return err
		}
		defer a.Close()

		clip, err := a.SetClipDuration(args[0], args[1], frames)
		if err != nil {
			return fmt.Errorf("setting duration: %w", err)
		}
		fmt.Printf("%s is now %d frames\n", clip.ID, clip.Duration)
		return nil
	},
}

var playlistRefreshCountsCmd = &cobra.Command{
	Use:   "refresh-counts PLAYLIST_ID",
	Short: "Re-read the comment counts of every clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RefreshCounts")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.RefreshCounts(args[0])
		if err != nil {
			return fmt.Errorf("refreshing counts: %w", err)
		}
		printPlaylist(p)
		return nil
	},
}

func init() {
	playlistCmd.AddCommand(playlistListCmd)
	playlistCmd.AddCommand(playlistShowCmd)
	playlistCmd.AddCommand(playlistCreateCmd)
	playlistCreateCmd.Flags().StringP("description", "d", "", "Playlist description")
	playlistCmd.AddCommand(playlistRenameCmd)
	playlistCmd.AddCommand(playlistDeleteCmd)
	playlistCmd.AddCommand(playlistDuplicateCmd)
	playlistCmd.AddCommand(playlistAddClipCmd)
	playlistAddClipCmd.Flags().Int("duration", 0, "Clip length in frames (default 120)")
	playlistCmd.AddCommand(playlistRemoveClipCmd)
	playlistCmd.AddCommand(playlistReorderCmd)
	playlistCmd.AddCommand(playlistSetDurationCmd)
	playlistCmd.AddCommand(playlistRefreshCountsCmd)

	rootCmd.AddCommand(playlistCmd)
}
