package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"face-gallery/internal/platform/catalog"
	"face-gallery/internal/platform/storage"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage gallery indexes kept in object storage",
		Long: `Upload and list gallery indexes in the bucket the server reads from
when CATALOG_SOURCE=object.`,
	}

	cmd.AddCommand(newIndexPushCmd(a), newIndexListCmd(a))

	return cmd
}

func newIndexPushCmd(a *app) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Validate a gallery index and upload it",
		Example: `  # Upload under the file name
  galleryctl index push ./gallery.json

  # Upload under another key
  galleryctl index push ./gallery.json --key people/2024.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read index: %w", err)
			}
			parsed, err := catalog.Parse(data, a.cfg.Catalog.ReplaceRules)
			if err != nil {
				return fmt.Errorf("refusing to upload an invalid index: %w", err)
			}

			client, err := storage.NewMinIOClient(a.cfg.Storage)
			if err != nil {
				return err
			}
			if err := client.EnsureBucket(ctx); err != nil {
				return err
			}

			if key == "" {
				key = filepath.Base(args[0])
			}
			if err := client.PutObject(ctx, key, data, "application/json"); err != nil {
				return err
			}
			stored, err := client.StatObject(ctx, key)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s/%s (%d bytes, %d categories, %d images)\n",
				args[0], client.Bucket(), stored.Key, stored.Size, len(parsed.Categories()), parsed.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key (defaults to the file name)")

	return cmd
}

func newIndexListCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the uploaded gallery indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := storage.NewMinIOClient(a.cfg.Storage)
			if err != nil {
				return err
			}
			objects, err := client.ListObjects(ctx, prefix)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
			for _, obj := range objects {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list keys with this prefix")

	return cmd
}
