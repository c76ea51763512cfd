package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Run the OCR and dictionary pipeline on an image file",
	Long: `Run the same pipeline as POST /ocr-and-translate on a local image and
print the JSON response.

With --x and --y the word under that point is looked up, otherwise every
recognized token is.`,
	RunE: runLookup,
}

var (
	lookupImage       string
	lookupX           float64
	lookupY           float64
	lookupPixelRatio  float64
	lookupOrientation string
)

func init() {
	RootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupImage, "image", "", "Path to input image file (required)")
	lookupCmd.Flags().Float64Var(&lookupX, "x", 0, "Cursor x in CSS pixels")
	lookupCmd.Flags().Float64Var(&lookupY, "y", 0, "Cursor y in CSS pixels")
	lookupCmd.Flags().Float64Var(&lookupPixelRatio, "pixel-ratio", 1.0, "Device pixel ratio of the screenshot")
	lookupCmd.Flags().StringVar(&lookupOrientation, "orientation", string(recognition.Horizontal), "Text orientation: horizontal or vertical")

	lookupCmd.MarkFlagsRequiredTogether("x", "y")
	err := lookupCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(lookupImage)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	img, err := screenshot.FromBytes(raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", lookupImage, err)
	}

	orientation, err := recognition.ParseOrientation(lookupOrientation)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Image:       img,
		Orientation: orientation,
	}
	if cmd.Flags().Changed("x") {
		cursor := locate.Cursor{X: lookupX, Y: lookupY, PixelRatio: lookupPixelRatio}
		if err := cursor.Validate(); err != nil {
			return err
		}
		req.Cursor = &cursor
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, rec, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	slog.Info("Looking up image", "image", lookupImage, "backend", rec.Name(), "cursor", req.Cursor != nil)

	resp, err := p.Process(cmd.Context(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
