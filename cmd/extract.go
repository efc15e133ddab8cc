package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/RyanBlaney/sonido-catalog/configs"
	"github.com/RyanBlaney/sonido-catalog/internal/app"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/decode"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/features"
)

var (
	extractScaled  bool
	extractTimeout time.Duration
)

var extractCmd = &cobra.Command{
	Use:   "extract [file.mp3]",
	Short: "Extract the feature vector of a local MP3 file",
	Long: `Decode a local MP3 file and print its feature vector in canonical
column order, optionally standardized with the pre-fitted scaler.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractScaled, "scaled", false,
		"standardize the vector with the pre-fitted scaler")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", time.Minute,
		"timeout for decoding and feature extraction")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	waveform, err := decode.NewDecoder().Decode(ctx, data)
	if err != nil {
		return err
	}

	row, err := features.NewExtractor().Extract(ctx, waveform)
	if err != nil {
		return err
	}

	if extractScaled {
		cfg, err := configs.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appCtx, err := app.NewOfflineContext(cfg)
		if err != nil {
			return err
		}
		row, err = appCtx.Scaler.Transform(row)
		if err != nil {
			return err
		}
	}

	if viper.GetString("output_format") == "json" {
		out := make(map[string]float64, row.Len())
		for _, col := range row.Columns() {
			v, _ := row.Value(col)
			out[col.Key()] = v
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	p := message.NewPrinter(language.English)
	p.Printf("Feature vector for %s (%d columns, %.1fs of audio at %d Hz)\n",
		path, row.Len(), waveform.Duration(), waveform.SampleRate)
	p.Printf("============================================================\n")
	for _, col := range row.Columns() {
		v, _ := row.Value(col)
		p.Printf("%-28s %14.6f\n", col.Key(), v)
	}
	return nil
}
