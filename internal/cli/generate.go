package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quizgen-service/internal/config"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

type generateOptions struct {
	topic      string
	file       string
	difficulty string
	count      int
	save       bool
}

// NewGenerateCmd generates a single quiz from the command line and prints it as JSON.
// Without --save the quiz is kept in memory only and no events are published.
func NewGenerateCmd(configPath *string) *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz from a topic or a document and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, *configPath, opts)
		},
	}
	cmd.Flags().StringVar(&opts.topic, "topic", "", "quiz topic")
	cmd.Flags().StringVar(&opts.file, "file", "", "PDF or text document to build the quiz from")
	cmd.Flags().StringVar(&opts.difficulty, "difficulty", string(domain.Beginner), "beginner, intermediate or expert")
	cmd.Flags().IntVar(&opts.count, "count", 5, "number of questions")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist through the configured store, archive and events")
	return cmd
}

func runGenerate(cmd *cobra.Command, configPath string, opts generateOptions) error {
	if strings.TrimSpace(opts.topic) == "" && opts.file == "" {
		return fmt.Errorf("one of --topic or --file is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !opts.save {
		cfg.Store.Driver = "memory"
		cfg.Archive.Driver = "none"
		cfg.Events.AMQPURL = ""
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	built, err := buildComponents(ctx, cfg, log, metrics.New())
	if err != nil {
		return err
	}
	defer built.close()

	quizCfg := domain.QuizConfig{
		Topic:         strings.TrimSpace(opts.topic),
		Difficulty:    domain.Difficulty(strings.ToLower(opts.difficulty)),
		QuestionCount: opts.count,
	}

	var quiz domain.Quiz
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		if quizCfg.Topic == "" {
			quizCfg.Topic = opts.file
		}
		quiz, err = built.service.UploadQuiz(ctx, data, quizCfg)
		if err != nil {
			return err
		}
	} else {
		quiz, err = built.service.CreateQuiz(ctx, quizCfg)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(quiz)
}
