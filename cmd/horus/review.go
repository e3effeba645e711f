package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"horus-go/internal/app"
	"horus-go/internal/horus"

	"github.com/spf13/cobra"
)

func keyFromArgs(args []string) horus.StatusKey {
	return horus.StatusKey{Episode: args[0], Sequence: args[1], Shot: args[2], Department: args[3], Version: args[4]}
}

func shotFromArgs(args []string) horus.ShotInfo {
	return horus.ShotInfo{Episode: args[0], Sequence: args[1], Shot: args[2]}
}

func printComments(comments []*horus.Comment, indent string) {
	for _, c := range comments {
		flags := ""
		if c.IsResolved {
			flags = " [resolved]"
		}
		frame := ""
		if c.FrameNumber != nil {
			frame = fmt.Sprintf(" @%d", *c.FrameNumber)
		}
		fmt.Printf("%s%s  %s  %s%s%s: %s\n", indent, c.ID, c.CreatedAt.Time.Format("2006-01-02 15:04"), c.UserID, frame, flags, c.Content)
		for kind, users := range c.Reactions {
			if len(users) > 0 {
				fmt.Printf("%s    %s: %s\n", indent, kind, strings.Join(users, ", "))
			}
		}
		printComments(c.Replies, indent+"  ")
	}
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls [EPISODE [SEQUENCE [SHOT [DEPARTMENT]]]]",
	Short: "Browse the project tree",
	Args:  cobra.MaximumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		latest, _ := cmd.Flags().GetBool("latest")

		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		var names []string
		switch len(args) {
		case 0:
			names, err = a.Episodes()
		case 1:
			names, err = a.Sequences(args[0])
		case 2:
			var shots []horus.Shot
			shots, err = a.Shots(args[0], args[1])
			for _, s := range shots {
				names = append(names, s.Name)
			}
		case 3:
			names, err = a.Departments(args[0], args[1], args[2])
		case 4:
			var views []app.MediaView
			views, err = a.Media(args[0], args[1], args[2], args[3], latest)
			if err != nil {
				return err
			}
			for _, v := range views {
				fmt.Printf("%-6s  %-10s  %-10s  %s\n", v.Record.Version, v.Record.MediaType(), v.Status, v.Playback)
			}
			return nil
		}
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read and set review statuses",
}

var statusGetCmd = &cobra.Command{
	Use:   "get EPISODE SEQUENCE SHOT DEPARTMENT VERSION",
	Short: "Show the status of a version",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.GetStatus(keyFromArgs(args))
		if errors.Is(err, horus.ErrNotFound) {
			fmt.Println(horus.DefaultStatus)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s  (by %s at %s)\n", rec.CurrentStatus, rec.LastChangedBy, rec.LastChanged.Time.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var statusSetCmd = &cobra.Command{
	Use:   "set EPISODE SEQUENCE SHOT DEPARTMENT VERSION STATUS",
	Short: "Record a review decision",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.SetStatus(keyFromArgs(args), args[5])
		if err != nil {
			return fmt.Errorf("setting status: %w", err)
		}
		fmt.Printf("%s is now %s\n", keyFromArgs(args), rec.CurrentStatus)
		return nil
	},
}

var statusHistoryCmd = &cobra.Command{
	Use:   "history EPISODE SEQUENCE SHOT DEPARTMENT VERSION",
	Short: "Show every status change of a version",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("StatusHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.StatusHistory(keyFromArgs(args))
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Println("No status changes.")
			return nil
		}
		for _, c := range changes {
			fmt.Printf("%s  %-10s  %s\n", c.ChangedAt.Time.Format("2006-01-02 15:04:05"), c.Status, c.ChangedBy)
		}
		return nil
	},
}

var statusSequenceCmd = &cobra.Command{
	Use:   "sequence EPISODE SEQUENCE",
	Short: "Show every status recorded for a sequence",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SequenceStatuses")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.SequenceStatuses(args[0], args[1])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-12s  %-8s  %-6s  %-10s  %s\n", e.Key.Shot, e.Key.Department, e.Key.Version, e.Record.CurrentStatus, e.Record.LastChangedBy)
		}
		return nil
	},
}

// comments command
var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and write review comments",
}

var commentsListCmd = &cobra.Command{
	Use:   "list EPISODE SEQUENCE SHOT",
	Short: "Show the comment threads of a shot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Comments")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.Comments(shotFromArgs(args))
		if err != nil {
			return err
		}
		if len(doc.Comments) == 0 {
			fmt.Println("No comments.")
			return nil
		}
		printComments(doc.Comments, "")
		return nil
	},
}

var commentsAddCmd = &cobra.Command{
	Use:   "add EPISODE SEQUENCE SHOT MEDIA_FILE TEXT",
	Short: "Start a comment thread",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddComment")
		if err != nil {
			return err
		}
		defer a.Close()

		var frame *int
		if cmd.Flags().Changed("frame") {
			f, _ := cmd.Flags().GetInt("frame")
			frame = &f
		}
		c, err := a.AddComment(shotFromArgs(args), args[3], frame, args[4])
		if err != nil {
			return fmt.Errorf("adding comment: %w", err)
		}
		fmt.Printf("Added comment %s\n", c.ID)
		return nil
	},
}

var commentsReplyCmd = &cobra.Command{
	Use:   "reply EPISODE SEQUENCE SHOT COMMENT_ID TEXT",
	Short: "Reply to a comment",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Reply")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Reply(shotFromArgs(args), args[3], args[4])
		if err != nil {
			return fmt.Errorf("replying: %w", err)
		}
		fmt.Printf("Added reply %s (depth %d)\n", c.ID, c.ThreadDepth)
		return nil
	},
}

var commentsDeleteCmd = &cobra.Command{
	Use:   "delete EPISODE SEQUENCE SHOT COMMENT_ID",
	Short: "Delete a comment and its replies",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteComment")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.DeleteComment(shotFromArgs(args), args[3])
		if err != nil {
			return fmt.Errorf("deleting comment: %w", err)
		}
		fmt.Printf("Deleted %d comment(s)\n", n)
		return nil
	},
}

var commentsReactCmd = &cobra.Command{
	Use:   "react EPISODE SEQUENCE SHOT COMMENT_ID KIND",
	Short: "Toggle a reaction on a comment",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("React")
		if err != nil {
			return err
		}
		defer a.Close()

		on, err := a.React(shotFromArgs(args), args[3], args[4])
		if err != nil {
			return fmt.Errorf("reacting: %w", err)
		}
		if on {
			fmt.Printf("Added %s\n", args[4])
		} else {
			fmt.Printf("Removed %s\n", args[4])
		}
		return nil
	},
}

var commentsResolveCmd = &cobra.Command{
	Use:   "resolve EPISODE SEQUENCE SHOT COMMENT_ID",
	Short: "Mark a comment resolved",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		reopen, _ := cmd.Flags().GetBool("reopen")

		a, err := newApp("ResolveComment")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.ResolveComment(shotFromArgs(args), args[3], !reopen)
		if err != nil {
			return fmt.Errorf("resolving comment: %w", err)
		}
		fmt.Printf("%s resolved=%t\n", c.ID, c.IsResolved)
		return nil
	},
}

var commentsEditCmd = &cobra.Command{
	Use:   "edit EPISODE SEQUENCE SHOT COMMENT_ID TEXT",
	Short: "Replace the text of a comment",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EditComment")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.EditComment(shotFromArgs(args), args[3], args[4]); err != nil {
			return fmt.Errorf("editing comment: %w", err)
		}
		fmt.Printf("Edited %s\n", args[3])
		return nil
	},
}

// annotations command
var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "Read and add frame annotations",
}

var annotationsListCmd = &cobra.Command{
	Use:   "list EPISODE SEQUENCE SHOT",
	Short: "Show the annotations of a shot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentID, _ := cmd.Flags().GetString("comment")

		a, err := newApp("Annotations")
		if err != nil {
			return err
		}
		defer a.Close()

		anns, err := a.Annotations(shotFromArgs(args), commentID)
		if err != nil {
			return err
		}
		if len(anns) == 0 {
			fmt.Println("No annotations.")
			return nil
		}
		for _, ann := range anns {
			image := ""
			if ann.ImagePath != nil {
				image = *ann.ImagePath
			}
			fmt.Printf("%s  %-10s  %-24s  %6d  %s  %s\n", ann.ID, ann.Type, ann.MediaFile, ann.FrameNumber, ann.CreatedBy, image)
		}
		return nil
	},
}

var annotationsAddImageCmd = &cobra.Command{
	Use:   "add-image EPISODE SEQUENCE SHOT DEPARTMENT VERSION FRAME PNG_FILE",
	Short: "Upload a freehand drawing for one frame",
	Args:  cobra.ExactArgs(7),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentID, _ := cmd.Flags().GetString("comment")
		frame, err := strconv.Atoi(args[5])
		if err != nil {
			return fmt.Errorf("invalid frame %q: %w", args[5], err)
		}

		a, err := newApp("AddAnnotationImage")
		if err != nil {
			return err
		}
		defer a.Close()

		ann, err := a.AddAnnotationImage(keyFromArgs(args), frame, args[6], commentID)
		if err != nil {
			return fmt.Errorf("adding annotation: %w", err)
		}
		fmt.Printf("Added annotation %s\n", ann.ID)
		return nil
	},
}

func init() {
	lsCmd.Flags().Bool("latest", false, "Only show the newest version of each file")

	statusCmd.AddCommand(statusGetCmd)
	statusCmd.AddCommand(statusSetCmd)
	statusCmd.AddCommand(statusHistoryCmd)
	statusCmd.AddCommand(statusSequenceCmd)

	commentsCmd.AddCommand(commentsListCmd)
	commentsCmd.AddCommand(commentsAddCmd)
	commentsAddCmd.Flags().Int("frame", 0, "Frame the comment refers to")
	commentsCmd.AddCommand(commentsReplyCmd)
	commentsCmd.AddCommand(commentsDeleteCmd)
	commentsCmd.AddCommand(commentsReactCmd)
	commentsCmd.AddCommand(commentsResolveCmd)
	commentsResolveCmd.Flags().Bool("reopen", false, "Mark the comment unresolved instead")
	commentsCmd.AddCommand(commentsEditCmd)

	annotationsCmd.AddCommand(annotationsListCmd)
	annotationsListCmd.Flags().String("comment", "", "Only show annotations linked to this comment")
	annotationsCmd.AddCommand(annotationsAddImageCmd)
	annotationsAddImageCmd.Flags().String("comment", "", "Link the annotation to this comment")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(annotationsCmd)
}
