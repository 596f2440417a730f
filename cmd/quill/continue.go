package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/internal/editor"
	"quill-ai-editor/internal/infrastructure/genclient"
)

// continueOptions continue 命令参数。From/To 为 -1 时光标位于文末。
type continueOptions struct {
	Style   string
	From    int
	To      int
	Timeout time.Duration
}

var continueCmd = &cobra.Command{
	Use:   "continue [file]",
	Short: "Continue the text at the cursor, or expand the selected range",
	Long: `Reads the document from a file (or stdin), runs one continuation through the
generation endpoint and prints the updated document. With --from/--to the
range is treated as a selection and expanded instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clientCfg, err := loadClientConfig(cmd)
		if err != nil {
			return err
		}

		opts := continueOptions{}
		opts.Style, _ = cmd.Flags().GetString("style")
		opts.From, _ = cmd.Flags().GetInt("from")
		opts.To, _ = cmd.Flags().GetInt("to")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		inPlace, _ := cmd.Flags().GetBool("write")

		var src io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		} else if inPlace {
			return fmt.Errorf("--write requires a file argument")
		}

		raw, err := io.ReadAll(src)
		if err != nil {
			return err
		}

		out, err := runContinue(cmd.Context(), clientCfg, opts, string(raw))
		if err != nil {
			return err
		}

		if inPlace {
			return os.WriteFile(args[0], []byte(out), 0o644)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(continueCmd)

	continueCmd.Flags().StringP("style", "s", string(entity.DefaultStyle), "Writing style (auto, professional, creative, casual)")
	continueCmd.Flags().Int("from", -1, "Selection start (character offset)")
	continueCmd.Flags().Int("to", -1, "Selection end (character offset)")
	continueCmd.Flags().Duration("timeout", editor.DefaultTimeout, "Generation timeout")
	continueCmd.Flags().BoolP("write", "w", false, "Write the result back to the file")
}

// runContinue 在内存文档上执行一次续写，返回更新后的全文
func runContinue(ctx context.Context, clientCfg config.ClientConfig, opts continueOptions, text string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	style, err := entity.ParseStyle(opts.Style)
	if err != nil {
		return "", err
	}

	if opts.To >= 0 && opts.From < 0 {
		return "", fmt.Errorf("--to requires --from")
	}

	doc := editor.NewDocument(text)
	switch {
	case opts.From >= 0 && opts.To >= 0:
		if err := doc.Select(opts.From, opts.To); err != nil {
			return "", err
		}
	case opts.From >= 0:
		if err := doc.SetCursor(opts.From); err != nil {
			return "", err
		}
	}

	client := genclient.NewFromConfig(clientCfg)
	m := editor.NewMachine(client,
		editor.WithContext(ctx),
		editor.WithTimeout(opts.Timeout),
		editor.WithStyle(style),
	)
	m.Attach(doc)

	if !m.Continue() {
		return "", fmt.Errorf("continuation not accepted in state %s", m.Snapshot().Phase)
	}
	if err := m.Wait(ctx); err != nil {
		return "", err
	}

	if snap := m.Snapshot(); snap.Error != "" {
		return "", fmt.Errorf("%s", snap.Error)
	}
	return doc.FullText(), nil
}
