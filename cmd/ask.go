package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"quran-ai/internal/chat"
	"quran-ai/internal/conversation"
	"quran-ai/internal/models"
	"quran-ai/internal/prompts"
	"quran-ai/internal/scripture"
)

func newAskCmd() *cobra.Command {
	var (
		serverURL    string
		providerName string
		model        string
		surah        int
		verse        int
		locale       string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question through a running relay",
		Long: `Ask a question through a running relay and print the answer as it streams.

Without --provider and --model the relay's catalogs are queried and the
first preferred model is used. With --surah the question is framed around
that chapter; an empty question asks for an overview. Adding --verse quotes
the verse and its translation in the prompt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging("warn", "text")

			question := ""
			if len(args) == 1 {
				question = strings.TrimSpace(args[0])
			}
			if question == "" && surah == 0 {
				return errors.New("ask requires a question or --surah")
			}
			if verse != 0 && surah == 0 {
				return errors.New("--verse requires --surah")
			}

			var opts []chat.Option
			opts = append(opts, chat.WithLocale(chat.ParseLocale(locale)))
			if providerName != "" || model != "" {
				id, ok := models.ParseProviderID(providerName)
				if !ok || model == "" {
					return errors.New("--provider and --model must be given together with a known provider")
				}
				opts = append(opts, chat.WithSelection(models.Selection{Provider: id, Model: model}))
			}

			out := cmd.OutOrStdout()
			printer := &incrementalPrinter{w: out}
			opts = append(opts, chat.WithOnUpdate(printer.update))

			client := chat.NewClient(serverURL, nil)
			session := chat.NewSession(client, opts...)

			req := chat.AskRequest{Prompt: question, Mode: chat.ModeFresh}
			if surah != 0 {
				ch, err := client.Chapter(cmd.Context(), surah)
				if err != nil {
					return err
				}
				pc := prompts.Chapter{Name: ch.Name, NameArabic: ch.NameArabic}
				switch {
				case verse != 0:
					source, translation, err := verseText(cmd.Context(), client, surah, verse)
					if err != nil {
						return err
					}
					req.Prompt = prompts.VerseQuestion(pc, verse, source, translation, question)
					req.Display = fmt.Sprintf("%s %d:%d", ch.Name, surah, verse)
					if question != "" {
						req.Display += " " + question
					}
				case question == "":
					req.Prompt = prompts.ChapterOverview(pc)
					req.Display = fmt.Sprintf("Surah %s", ch.Name)
				default:
					req.Prompt = prompts.ChapterQuestion(pc, question)
					req.Display = question
				}
			}

			_, err := session.Ask(cmd.Context(), req)
			fmt.Fprintln(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&serverURL, "server", "s", defaultServerURL, "Relay base URL")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider (together, groq, openrouter)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model ID")
	cmd.Flags().IntVar(&surah, "surah", 0, "Frame the question around this surah number")
	cmd.Flags().IntVar(&verse, "verse", 0, "Frame the question around this verse of --surah")
	cmd.Flags().StringVar(&locale, "locale", string(chat.LocaleIndonesian), "Language of failure messages (id, en)")
	return cmd
}

func verseText(ctx context.Context, client *chat.Client, surah, verse int) (string, string, error) {
	p, err := client.Partition(ctx, scripture.KindSurah, surah)
	if err != nil {
		return "", "", err
	}
	for _, v := range p.Verses {
		if v.NumberInSurah == verse {
			return v.Text, v.Translation, nil
		}
	}
	return "", "", fmt.Errorf("surah %d has no verse %d", surah, verse)
}

// incrementalPrinter writes only the new tail of the assistant turn. The
// displayed text can shrink when a reasoning block closes; in that case the
// whole text is printed again on a fresh line.
type incrementalPrinter struct {
	w       io.Writer
	printed string
}

func (p *incrementalPrinter) update(turns []conversation.Turn) {
	if len(turns) == 0 {
		return
	}
	last := turns[len(turns)-1]
	if last.Role != conversation.RoleAssistant {
		return
	}
	if strings.HasPrefix(last.Content, p.printed) {
		fmt.Fprint(p.w, last.Content[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+last.Content)
	}
	p.printed = last.Content
}
