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
)

var (
	classifyTopN    int
	classifyTimeout time.Duration
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file.mp3]",
	Short: "Classify the genre of a local MP3 file",
	Long: `Decode a local MP3 file, extract its feature vector and run the
pretrained genre classifier, printing the top predictions.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().IntVarP(&classifyTopN, "top", "n", 5,
		"number of genre predictions to print")
	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", time.Minute,
		"timeout for decoding and feature extraction")
}

func runClassify(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appCtx, err := app.NewOfflineContext(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	scores, err := appCtx.Pipeline.Classify(ctx, data, classifyTopN)
	if err != nil {
		return err
	}

	if viper.GetString("output_format") == "json" {
		out, err := json.MarshalIndent(scores, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	p := message.NewPrinter(language.English)
	p.Printf("Genre predictions for %s\n", path)
	p.Printf("==============================\n")
	for i, s := range scores {
		p.Printf("%2d. %-20s %6.2f%%\n", i+1, s.Genre, s.Percent)
	}
	return nil
}
