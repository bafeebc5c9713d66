package main

import (
	"io"
	"os"

	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	var (
		xlsx bool
		out  string
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the sample user import file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if xlsx {
				b, err := importer.GenerateSampleXLSX()
				if err != nil {
					return err
				}
				data = b
			} else {
				data = []byte(importer.GenerateSampleCSV())
			}

			if out == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return writeFile(out, data)
		},
	}
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Write an Excel workbook instead of CSV")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// createOutput opens path for writing, or returns stdout for "-".
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
