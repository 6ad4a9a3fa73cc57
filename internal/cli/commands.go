package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"face-gallery/internal/domain/gallery"
	"face-gallery/internal/services"
)

const defaultPerPage = 20

// pageFlags selects a page of a category listing
type pageFlags struct {
	page int
	seed string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&p.page, "page", "p", 1, "Page of the listing")
	cmd.Flags().StringVar(&p.seed, "seed", "", "Shuffle seed for _favorites and _unfavorites")
}

func (a *app) query(args []string, p pageFlags) gallery.PageQuery {
	q := gallery.PageQuery{CatalogIndex: a.catalogIndex, Page: p.page, Seed: p.seed}
	if len(args) > 0 {
		q.Category = args[0]
	}
	return q
}

func newCategoriesCmd(a *app) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories of a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.services(ctx, cmd)
			if err != nil {
				return err
			}

			listing, err := c.GalleryUI().Categories(ctx, a.catalogIndex, page)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tITEMS\tTHUMBNAIL")
			for _, s := range listing.Categories {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.ItemCount, s.ThumbURL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d\n", listing.CurrentPage, listing.TotalPages)
			if listing.DateUpdated != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Index updated %s\n", listing.DateUpdated)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page of the listing")

	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		pf    pageFlags
		probe bool
	)

	cmd := &cobra.Command{
		Use:   "show [CATEGORY]",
		Short: "Show one page of a category with its like states",
		Example: `  # First page of every image
  galleryctl show

  # Second page of a category, loading each image first
  galleryctl show people --page 2 --probe`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.services(ctx, cmd)
			if err != nil {
				return err
			}
			ui := c.GalleryUI()

			view, err := ui.OpenView(ctx, a.query(args, pf))
			if err != nil {
				return err
			}
			if probe {
				if err := ui.LoadImages(ctx, view.ID); err != nil {
					return err
				}
				if view, err = ui.GetView(ctx, view.ID); err != nil {
					return err
				}
			}

			return printView(cmd.OutOrStdout(), view)
		},
	}

	pf.register(cmd)
	cmd.Flags().BoolVar(&probe, "probe", false, "Load every image and report its size")

	return cmd
}

// newLikeCmd builds the like and unlike commands; the command name is the action
func newLikeCmd(a *app, name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " PATH",
		Short: fmt.Sprintf("Send a %s for one image", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := gallery.ParseAction(cmd.Name())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := a.services(ctx, cmd)
			if err != nil {
				return err
			}

			view, path, err := a.locate(ctx, c, args[0])
			if err != nil {
				return err
			}
			iv, err := view.Item(path)
			if err != nil {
				return err
			}
			if iv.Like == action.Target() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", path, iv.Like)
				return nil
			}

			// The toggle from the other state is exactly the requested action
			updated, err := c.GalleryUI().ToggleLike(ctx, view.ID, path)
			if err != nil {
				return err
			}
			iv, err = updated.Item(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", path, iv.Like)
			return nil
		},
	}
}

func newBatchLikeCmd(a *app) *cobra.Command {
	var pf pageFlags

	cmd := &cobra.Command{
		Use:   "batch-like [CATEGORY]",
		Short: "Like every image on one page of a category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.services(ctx, cmd)
			if err != nil {
				return err
			}
			ui := c.GalleryUI()

			view, err := ui.OpenView(ctx, a.query(args, pf))
			if err != nil {
				return err
			}
			if view.Seed != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "seed: %s\n", view.Seed)
			}

			// The summary or failure is printed by the notifier
			_, err = ui.BatchLike(ctx, view.ID)
			return err
		},
	}

	pf.register(cmd)

	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info PATH",
		Short: "Show the detection scores of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.services(ctx, cmd)
			if err != nil {
				return err
			}

			view, path, err := a.locate(ctx, c, args[0])
			if err != nil {
				return err
			}
			updated, err := c.GalleryUI().ShowImageInfo(ctx, view.ID, path)
			if err != nil {
				return err
			}

			d := updated.Modal.Detail
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Path:\t%s\n", d.Path)
			fmt.Fprintf(tw, "Face score:\t%s\n", d.FaceScore)
			fmt.Fprintf(tw, "Landmark score:\t%s\n", d.LandmarkScore)
			fmt.Fprintf(tw, "Category:\t%s (%s)\n", d.CategoryLabel, d.CategoryHref)
			return tw.Flush()
		},
	}
}

// locate opens a view on the category page that shows path and returns the
// path as the catalog stores it
func (a *app) locate(ctx context.Context, c *services.Container, path string) (*gallery.View, string, error) {
	cat, err := c.Catalogs().Load(ctx, a.catalogIndex)
	if err != nil {
		return nil, "", err
	}
	item, ok := cat.Find(path)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", gallery.ErrItemNotFound, path)
	}

	perPage := a.cfg.Catalog.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	view, err := c.GalleryUI().OpenView(ctx, gallery.PageQuery{
		CatalogIndex: a.catalogIndex,
		Category:     item.Category,
		Page:         pageOf(cat.Items(item.Category), item.Path, perPage),
	})
	if err != nil {
		return nil, "", err
	}
	return view, item.Path, nil
}

// pageOf returns the 1-based page of items that holds path
func pageOf(items []gallery.Item, path string, perPage int) int {
	for i, it := range items {
		if it.Path == path {
			return i/perPage + 1
		}
	}
	return 1
}

func printView(w io.Writer, view *gallery.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLIKE\tIMAGE")
	for _, iv := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", iv.Item.Path, iv.Like, imageSummary(iv))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Page %d of %d, %d liked", view.Page, view.TotalPages, view.LikedCount())
	if view.Seed != "" {
		fmt.Fprintf(w, ", seed %s", view.Seed)
	}
	fmt.Fprintln(w)
	return nil
}

func imageSummary(iv gallery.ItemView) string {
	switch {
	case !iv.Loaded:
		return "-"
	case iv.Image.Failed():
		return "error: " + iv.Image.Err
	default:
		return fmt.Sprintf("%s %dx%d", iv.Image.Format, iv.Image.Width, iv.Image.Height)
	}
}
