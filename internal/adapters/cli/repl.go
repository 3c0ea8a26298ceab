package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

const (
	banner = "BAföG Chatbot. Ask anything about student funding in Germany. Type /help for commands."
	help   = `Commands:
  /key    change the OpenRouter API key (resets the chat)
  /clear  clear the conversation
  /help   show this help
  /exit   quit`
	changeKeyPrompt = "Do you really want to change the API key? The chat will be reset. [y/N] "
	keyPrompt       = "OpenRouter API key: "
	inputPrompt     = "> "
)

// REPL is the terminal front end of one chat session.
type REPL struct {
	chat ports.ChatService
	in   *bufio.Scanner
	out  io.Writer
}

func NewREPL(chat ports.ChatService, in io.Reader, out io.Writer) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &REPL{chat: chat, in: scanner, out: out}
}

// Run reads lines until /exit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	strategy := r.chat.Start(ctx)
	r.println(banner)
	if strategy == domain.StrategyBackendPreferred {
		r.println("Connected to the knowledge base service.")
	}

	if !r.chat.HasCredential() {
		if !r.askCredential(ctx) {
			return r.in.Err()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, ok := r.readLine(inputPrompt)
		if !ok {
			return r.in.Err()
		}
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "/exit", "/quit":
			return nil
		case "/help":
			r.println(help)
			continue
		case "/clear":
			r.chat.ClearHistory()
			r.println("Chat cleared.")
			continue
		case "/key":
			if !r.changeCredential(ctx) {
				return r.in.Err()
			}
			continue
		}

		reply, err := r.chat.SendMessage(ctx, line)
		if errors.Is(err, domain.ErrCredentialMissing) {
			if !r.askCredential(ctx) {
				return r.in.Err()
			}
			continue
		}
		if err != nil {
			r.println(FormatError(err))
			continue
		}
		r.println(FormatReply(reply))
	}
}

// askCredential prompts until a valid key is stored. It reports false when
// input ends.
func (r *REPL) askCredential(ctx context.Context) bool {
	for {
		key, ok := r.readLine(keyPrompt)
		if !ok {
			return false
		}
		if err := r.chat.SaveCredential(ctx, key); err != nil {
			r.println(FormatError(err))
			continue
		}
		r.println("API key saved.")
		return true
	}
}

func (r *REPL) changeCredential(ctx context.Context) bool {
	answer, ok := r.readLine(changeKeyPrompt)
	if !ok {
		return false
	}
	if a := strings.ToLower(answer); a != "y" && a != "yes" {
		return true
	}
	if err := r.chat.ResetCredential(ctx); err != nil {
		r.println(FormatError(err))
		return true
	}
	r.println("Chat cleared.")
	return r.askCredential(ctx)
}

func (r *REPL) readLine(prompt string) (string, bool) {
	fmt.Fprint(r.out, prompt)
	if !r.in.Scan() {
		fmt.Fprintln(r.out)
		return "", false
	}
	return strings.TrimSpace(r.in.Text()), true
}

func (r *REPL) println(text string) {
	fmt.Fprintln(r.out, text)
}

// FormatReply renders the answer followed by its sources and a metadata
// footer.
func FormatReply(reply *domain.Reply) string {
	var b strings.Builder
	b.WriteString(reply.Answer)

	if len(reply.Sources) > 0 {
		b.WriteString("\n\n📚 Sources:")
		for _, src := range reply.Sources {
			fmt.Fprintf(&b, "\n  • %s", src.Name)
			if src.URL != "" {
				fmt.Fprintf(&b, " (%s)", src.URL)
			}
		}
	}

	var meta []string
	if reply.ResponseTime > 0 {
		meta = append(meta, fmt.Sprintf("⏱️ %.2fs", reply.ResponseTime.Seconds()))
	}
	if reply.TokenUsage != nil && reply.TokenUsage.TotalTokens > 0 {
		meta = append(meta, fmt.Sprintf("🔢 %d tokens", reply.TokenUsage.TotalTokens))
	}
	if len(meta) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(meta, " • "))
	}
	return b.String()
}

func FormatError(err error) string {
	var chatErr *domain.ChatError
	switch {
	case errors.As(err, &chatErr):
		return "⚠️ Error: " + chatErr.Error()
	case errors.Is(err, domain.ErrBusy):
		return "⚠️ Error: Please wait for the current answer."
	case errors.Is(err, domain.ErrInvalidInput):
		return "⚠️ Error: " + userMessage(err)
	default:
		return "⚠️ Error: " + err.Error()
	}
}

// userMessage drops the "operation: kind:" prefix added by domain.WrapError.
func userMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
