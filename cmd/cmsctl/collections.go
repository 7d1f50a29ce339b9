package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ridepool/cms/internal/app"
	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/defaults"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/persist"
)

const historyAuthor = "cmsctl"

type row struct {
	ID    string
	Order int
	Label string
}

// editor is one draft over a named collection, whatever its item type.
type editor interface {
	Rows() []row
	Source() persist.Source
	Move(id string, dir collection.Direction) bool
	Drop(id, targetID string, placement collection.Placement) bool
	Reorder(ids []string) error
	Remove(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context) error
	Seed(ctx context.Context) (int, error)
	Snapshot() (json.RawMessage, error)
}

type draftEditor[T persist.Record[T]] struct {
	sync  *persist.Synchronizer[T]
	draft *persist.Draft[T]
	label func(T) string
}

func loadEditor[T persist.Record[T]](ctx context.Context, sync *persist.Synchronizer[T], label func(T) string) (editor, error) {
	d, snap := persist.Load(ctx, sync)
	if snap.Err != nil {
		return nil, fmt.Errorf("load %s: %w", sync.Path(), snap.Err)
	}
	return &draftEditor[T]{sync: sync, draft: d, label: label}, nil
}

func (e *draftEditor[T]) Rows() []row {
	items := e.draft.Items()
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, row{ID: item.Key(), Order: item.Position(), Label: e.label(item)})
	}
	return rows
}

func (e *draftEditor[T]) Source() persist.Source { return e.draft.Source() }

func (e *draftEditor[T]) Move(id string, dir collection.Direction) bool {
	return e.draft.Move(id, dir)
}

func (e *draftEditor[T]) Drop(id, targetID string, placement collection.Placement) bool {
	return e.draft.Drop(id, targetID, placement)
}

func (e *draftEditor[T]) Reorder(ids []string) error { return e.draft.Reorder(ids) }

func (e *draftEditor[T]) Remove(ctx context.Context, id string) (bool, error) {
	return e.draft.Remove(ctx, id)
}

func (e *draftEditor[T]) Save(ctx context.Context) error { return e.draft.Save(ctx) }

func (e *draftEditor[T]) Seed(ctx context.Context) (int, error) {
	return e.sync.InitializeDefaults(ctx)
}

func (e *draftEditor[T]) Snapshot() (json.RawMessage, error) {
	items := e.draft.Items()
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func newSync[T persist.Record[T]](st persist.DocumentStore, path string, fallback func() []T, logger *zap.Logger) *persist.Synchronizer[T] {
	return persist.New(persist.Options[T]{Store: st, Path: path, Defaults: fallback, Logger: logger})
}

// openEditor loads the named collection. Unlike the API it fails on a store
// error instead of falling back to defaults.
func (c *cli) openEditor(ctx context.Context, st persist.DocumentStore, name string) (editor, error) {
	path := app.DataPath(c.cfg.Namespace, name)
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch name {
	case app.CollectionBlogs:
		return loadEditor(ctx, newSync(st, path, defaults.BlogPosts, logger), func(p content.BlogPost) string {
			return fmt.Sprintf("%s [%s]", p.Title, p.Status)
		})
	case app.CollectionFAQ:
		return loadEditor(ctx, newSync(st, path, defaults.FAQs, logger), func(f content.FAQ) string { return f.Question })
	case app.CollectionFeatures:
		return loadEditor(ctx, newSync(st, path, defaults.Features, logger), func(f content.Feature) string { return f.Title })
	case app.CollectionHowItWorks:
		return loadEditor(ctx, newSync(st, path, defaults.HowItWorks, logger), func(s content.HowItWorksStep) string {
			return fmt.Sprintf("%s (%s)", s.Title, s.Audience)
		})
	case app.CollectionInstagram:
		return loadEditor(ctx, newSync(st, path, defaults.Instagram, logger), func(p content.InstagramPost) string { return p.Permalink })
	}
	return nil, fmt.Errorf("unknown collection %q (want one of %s)", name, strings.Join(collectionNames, ", "))
}

var collectionNames = []string{
	app.CollectionBlogs,
	app.CollectionFAQ,
	app.CollectionFeatures,
	app.CollectionHowItWorks,
	app.CollectionInstagram,
}

// withEditor opens the store and the collection, runs fn, and closes the store.
func (c *cli) withEditor(cmd *cobra.Command, name string, fn func(ctx context.Context, e editor) error) error {
	ctx, cancel := c.context(cmd)
	defer cancel()
	st, closeStore, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	e, err := c.openEditor(ctx, st, name)
	if err != nil {
		return err
	}
	return fn(ctx, e)
}

// mutate applies change to a stored collection and saves it when anything moved.
func (c *cli) mutate(cmd *cobra.Command, name, message string, change func(e editor) (bool, error)) error {
	return c.withEditor(cmd, name, func(ctx context.Context, e editor) error {
		if e.Source() != persist.SourceStore {
			return fmt.Errorf("%s has no stored items; run cmsctl seed %s first", name, name)
		}
		changed, err := change(e)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to change")
			return nil
		}
		if err := e.Save(ctx); err != nil {
			return err
		}
		c.recordHistory(name, e, message)
		printRows(cmd, e)
		return nil
	})
}

func (c *cli) recordHistory(name string, e editor, message string) {
	if c.cfg.HistoryDir == "" {
		return
	}
	if _, err := os.Stat(c.cfg.HistoryDir); err != nil {
		return
	}
	raw, err := e.Snapshot()
	if err != nil {
		return
	}
	_, err = history.New(c.cfg.HistoryDir).Record(app.DataPath(c.cfg.Namespace, name), raw, historyAuthor, message)
	if err != nil && !errors.Is(err, history.ErrUnchanged) && c.logger != nil {
		c.logger.Warn("record history", zap.String("collection", name), zap.Error(err))
	}
}

func printRows(cmd *cobra.Command, e editor) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tLABEL")
	for _, r := range e.Rows() {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.Order, r.ID, r.Label)
	}
	_ = w.Flush()
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "Print a collection in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEditor(cmd, args[0], func(_ context.Context, e editor) error {
				fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n", e.Source())
				printRows(cmd, e)
				return nil
			})
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <collection>",
		Short: "Write the default items into an empty collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return c.withEditor(cmd, name, func(ctx context.Context, e editor) error {
				written, err := e.Seed(ctx)
				if errors.Is(err, persist.ErrNotEmpty) {
					return fmt.Errorf("%s already has stored items", name)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d %s items\n", written, name)
				return nil
			})
		},
	}
}

func newMoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move <collection> <id> <up|down>",
		Short: "Swap an item with its neighbour",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, ok := collection.ParseDirection(args[2])
			if !ok {
				return fmt.Errorf("direction must be up or down, got %q", args[2])
			}
			return c.mutate(cmd, args[0], fmt.Sprintf("move %s %s", args[1], dir), func(e editor) (bool, error) {
				if err := requireItem(e, args[1]); err != nil {
					return false, err
				}
				return e.Move(args[1], dir), nil
			})
		},
	}
}

func newDropCmd(c *cli) *cobra.Command {
	var before, after string
	cmd := &cobra.Command{
		Use:   "drop <collection> <id> (--before <target> | --after <target>)",
		Short: "Move an item next to another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (before == "") == (after == "") {
				return errors.New("pass exactly one of --before or --after")
			}
			target, placement := before, collection.Before
			if after != "" {
				target, placement = after, collection.After
			}
			id := args[1]
			return c.mutate(cmd, args[0], fmt.Sprintf("drop %s %s %s", id, placement, target), func(e editor) (bool, error) {
				if err := requireItem(e, id); err != nil {
					return false, err
				}
				if err := requireItem(e, target); err != nil {
					return false, err
				}
				return e.Drop(id, target, placement), nil
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Place the item before this id")
	cmd.Flags().StringVar(&after, "after", "", "Place the item after this id")
	return cmd
}

func newReorderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <collection> <id>...",
		Short: "Set the full display order of a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args[1:]
			return c.mutate(cmd, args[0], "reorder", func(e editor) (bool, error) {
				if err := e.Reorder(ids); err != nil {
					return false, err
				}
				return true, nil
			})
		},
	}
}

func newRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection> <id>",
		Short: "Delete an item and close the gap in the order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, id := args[0], args[1]
			return c.withEditor(cmd, name, func(ctx context.Context, e editor) error {
				if e.Source() != persist.SourceStore {
					return fmt.Errorf("%s has no stored items", name)
				}
				removed, err := e.Remove(ctx, id)
				if !removed {
					if err != nil {
						return err
					}
					return fmt.Errorf("no item %q in %s", id, name)
				}
				if err != nil {
					return fmt.Errorf("removed %s but renumbering failed: %w", id, err)
				}
				c.recordHistory(name, e, "remove "+id)
				printRows(cmd, e)
				return nil
			})
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <collection>",
		Short: "List recorded revisions of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.HistoryDir == "" {
				return errors.New("CMS_HISTORY_DIR is not set")
			}
			revisions, err := history.New(c.cfg.HistoryDir).History(app.DataPath(c.cfg.Namespace, args[0]), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HASH\tWHEN\tAUTHOR\tMESSAGE")
			for _, rev := range revisions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rev.Hash, rev.CreatedAt.Format("2006-01-02 15:04"), rev.Author, rev.Message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum revisions to list")
	return cmd
}

func requireItem(e editor, id string) error {
	for _, r := range e.Rows() {
		if r.ID == id {
			return nil
		}
	}
	return fmt.Errorf("no item %q", id)
}
