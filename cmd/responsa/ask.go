package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/responsa-ai/responsa/internal/app"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

var askDocumentIDs []string

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask questions about ingested documents",
	Long: `Answer one or more natural-language questions from the ingested
documents. Multiple questions are answered concurrently. Each answer
cites the document passages it is based on; when the documents do not
contain the information, the answer says so instead of guessing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVar(&askDocumentIDs, "doc", nil, "Restrict the search to a document id (can be repeated)")
}

type askResult struct {
	question string
	answer   *models.Answer
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	var filter *interfaces.IndexFilter
	if len(askDocumentIDs) > 0 {
		filter = &interfaces.IndexFilter{DocumentIDs: askDocumentIDs}
	}

	results := make([]askResult, len(args))
	var wg sync.WaitGroup
	for i, question := range args {
		wg.Add(1)
		go func(i int, question string) {
			defer wg.Done()
			results[i] = askResult{
				question: question,
				answer:   answerQuestion(ctx, application, question, filter),
			}
		}(i, question)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		printAnswer(r)
		if r.answer == nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(args))
	}
	return nil
}

func answerQuestion(ctx context.Context, application *app.App, question string, filter *interfaces.IndexFilter) *models.Answer {
	result, err := application.RetrieverService.Retrieve(ctx, question, filter)
	if err != nil {
		logger.Error().Str("question", question).Err(err).Msg("Retrieval failed")
		return nil
	}

	answer, err := application.SynthesizerService.Synthesize(ctx, question, result)
	if err != nil {
		logger.Error().Str("question", question).Err(err).Msg("Synthesis failed")
		return nil
	}
	return answer
}

func printAnswer(r askResult) {
	fmt.Printf("\nQ: %s\n", r.question)
	if r.answer == nil {
		fmt.Println("A: (failed, see log)")
		return
	}

	fmt.Printf("A: %s\n", r.answer.Text)
	if len(r.answer.Citations) > 0 {
		var refs []string
		for _, c := range r.answer.Citations {
			ref := c.DocumentName
			if ref == "" {
				ref = c.DocumentID
			}
			if c.Page > 0 {
				ref = fmt.Sprintf("%s p.%d", ref, c.Page)
			}
			refs = append(refs, fmt.Sprintf("[%d] %s", c.Label, ref))
		}
		fmt.Printf("Sources: %s\n", strings.Join(refs, ", "))
	}
}
