package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stefando/multipartUploadAWS/internal/turnkey"
)

func newPutCmd() *cobra.Command {
	var (
		prefix      string
		partSize    int64
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Upload a local file as a multipart upload",
		Long: `Initiates a multipart upload for the file, PUTs every part to its presigned
URL in parallel and finalizes. On any part failure the upload is aborted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, svc, err := setup(cmd.Context())
			if err != nil {
				return err
			}

			driver, err := turnkey.NewDriver(svc, turnkey.Options{
				PartSize:    partSize,
				Concurrency: concurrency,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			res, err := driver.UploadFile(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uploaded %s (%d bytes, %d parts) in %s\n", res.FileKey, res.Size, res.Parts, res.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "read URL: %s\n", res.PresignedURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix (the s3Key the file name is appended to)")
	cmd.Flags().Int64Var(&partSize, "part-size", turnkey.DefaultPartSize, "part size in bytes, at least 5 MiB")
	cmd.Flags().IntVar(&concurrency, "concurrency", turnkey.DefaultConcurrency, "parallel part uploads")
	return cmd
}
